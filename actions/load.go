package actions

import (
	"context"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/rdbms"
	"github.com/fscifa/totepipe/zone"
	"github.com/pkg/errors"
)

// RunLoad inserts the current processed generation into the warehouse,
// dimensions before the fact. A generation is loaded once: the load marker
// records it after every table succeeded.
func RunLoad(ctx context.Context, env *Env) (*StageResult, error) {
	res := newStageResult(constants.StageLoad)
	log := stageLogger(env, res)
	processed := zone.NewProcessedZone(env.Processed)
	current, err := processed.Watermark.Read()
	if err != nil {
		return res, err
	}
	res.Timestamp = current
	marker := zone.NewLoadMarker(env.Processed)
	loaded, err := marker.Read()
	switch {
	case err == nil && loaded == current:
		log.Info("generation ", current, " already loaded")
		res.Skipped = append(res.Skipped, constants.LoadTables...)
		return res, nil
	case err != nil && !errors.Is(err, zone.ErrMarkerMissing):
		return res, err
	}
	db, err := env.warehouse()
	if err != nil {
		return res, err
	}
	for _, table := range constants.LoadTables {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		d, err := processed.Latest(table)
		if errors.Is(err, zone.ErrNoNewData) || errors.Is(err, zone.ErrNotFound) {
			log.Info("nothing to load for table ", table, ": ", err)
			res.skip(table)
			continue
		}
		if err != nil {
			log.Error(err)
			res.fail(table, err)
			continue
		}
		n, err := rdbms.BulkInsert(ctx, log, db, table, d)
		if err != nil {
			log.Error(err)
			res.fail(table, err)
			continue
		}
		log.Debug("loaded ", n, " rows into ", table)
		res.write(table)
	}
	if err := res.Err(); err != nil {
		return res, err
	}
	if err := marker.Write(current); err != nil {
		return res, err
	}
	return res, nil
}
