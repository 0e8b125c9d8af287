package actions

import (
	"context"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/rdbms"
	"github.com/fscifa/totepipe/tabular"
	"github.com/fscifa/totepipe/zone"
	"github.com/pkg/errors"
)

// RunExtract copies every configured source table, or only the rows changed
// since the raw watermark, to the raw bucket as JSON. The watermark moves to
// the run timestamp only when every table succeeded.
func RunExtract(ctx context.Context, env *Env) (*StageResult, error) {
	res := newStageResult(constants.StageExtract)
	log := stageLogger(env, res)
	raw := zone.NewRawZone(env.Raw)
	since, err := raw.Watermark.Read()
	if errors.Is(err, zone.ErrMarkerMissing) {
		log.Info("no watermark found in bucket ", env.Raw.Bucket(), ", extracting all rows")
		since = ""
	} else if err != nil {
		return res, err
	}
	db, err := env.source()
	if err != nil {
		return res, err
	}
	// Rows changed while we run are picked up next time.
	res.Timestamp = zone.Timestamp(env.now())
	for _, table := range env.Config.Tables {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		d, err := rdbms.QueryTable(ctx, log, db, table, since)
		if err != nil {
			log.Error(err)
			res.fail(table, err)
			continue
		}
		if d.Len() == 0 {
			log.Info("no new rows in table ", table)
			res.skip(table)
			continue
		}
		b, err := tabular.EncodeRecords(table, d)
		if err != nil {
			res.fail(table, errors.Wrapf(err, "error encoding table %q", table))
			continue
		}
		key := zone.Key(table, res.Timestamp, constants.RawFileExt)
		if err := env.Raw.Put(key, b); err != nil {
			res.fail(table, storageError(env.Raw, key, "put", err))
			continue
		}
		log.Info("wrote ", d.Len(), " rows to ", key)
		res.write(key)
	}
	if err := res.Err(); err != nil {
		log.Error("watermark not updated: ", err)
		return res, err
	}
	if err := raw.Watermark.Write(res.Timestamp); err != nil {
		return res, err
	}
	log.Info("watermark updated to ", res.Timestamp)
	return res, nil
}
