package actions

import (
	"context"

	"github.com/fscifa/totepipe/columnar"
	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/transform"
	"github.com/fscifa/totepipe/zone"
)

// RunTransform builds the star schema from the current raw generation and
// writes each table to the processed bucket as parquet. The processed
// watermark moves when at least one table was written.
func RunTransform(ctx context.Context, env *Env) (*StageResult, error) {
	res := newStageResult(constants.StageTransform)
	log := stageLogger(env, res)
	codec, err := columnar.ParseCodec(env.Config.Compression)
	if err != nil {
		return res, err
	}
	filters, err := transform.NewFilters(env.Config.Filters)
	if err != nil {
		return res, err
	}
	raw := zone.NewRawZone(env.Raw)
	if _, err := raw.Watermark.Read(); err != nil {
		return res, err
	}
	res.Timestamp = zone.Timestamp(env.now())
	outputs, err := transform.NewBuilder(log, raw, filters).BuildAll(ctx)
	if err != nil {
		return res, err
	}
	for _, o := range outputs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch {
		case o.Err != nil:
			res.fail(o.Table, o.Err)
			continue
		case o.Skipped():
			res.skip(o.Table)
			continue
		}
		data, err := columnar.Encode(o.Data, codec)
		if err != nil {
			res.fail(o.Table, err)
			continue
		}
		key := zone.Key(o.Table, res.Timestamp, constants.ProcessedFileExt)
		if err := env.Processed.Put(key, data); err != nil {
			res.fail(o.Table, storageError(env.Processed, key, "put", err))
			continue
		}
		log.Info("wrote ", o.Data.Len(), " rows to ", key, " using ", codec)
		res.write(key)
	}
	if len(res.Written) > 0 {
		if err := zone.NewWatermark(env.Processed).Write(res.Timestamp); err != nil {
			return res, err
		}
		log.Info("processed watermark updated to ", res.Timestamp)
	}
	return res, res.Err()
}
