package zone

import (
	"github.com/fscifa/totepipe/aws/s3"
	"github.com/fscifa/totepipe/tabular"
	"github.com/pkg/errors"
)

// Zone is one bucket of the pipeline together with its selection and loading rules.
type Zone struct {
	Client    s3.BasicClient
	Selector  *Selector
	Loader    *Loader
	Watermark *Watermark
}

// NewRawZone serves JSON snapshots written by the extract stage.
func NewRawZone(client s3.BasicClient) *Zone {
	return &Zone{Client: client, Selector: NewSelector(client), Loader: NewRawLoader(client), Watermark: NewWatermark(client)}
}

// NewProcessedZone serves parquet tables written by the transform stage.
func NewProcessedZone(client s3.BasicClient) *Zone {
	return &Zone{Client: client, Selector: NewSelector(client), Loader: NewProcessedLoader(client), Watermark: NewWatermark(client)}
}

// Latest loads the file of table that belongs to the current watermark.
// It returns a *NoNewDataError when the newest file is from another generation.
func (z *Zone) Latest(table string) (*tabular.Dataset, error) {
	key, err := z.Selector.SelectLatest(table)
	if err != nil {
		return nil, err
	}
	return z.Loader.Load(key, table)
}

// Newest loads the newest file of table regardless of the watermark.
func (z *Zone) Newest(table string) (*tabular.Dataset, error) {
	key, err := z.Selector.Newest(table)
	if err != nil {
		return nil, err
	}
	return z.Loader.Load(key, table)
}

// All loads every file of table, oldest first.
func (z *Zone) All(table string) ([]*tabular.Dataset, error) {
	keys, err := z.Selector.All(table)
	if err != nil {
		return nil, err
	}
	out := make([]*tabular.Dataset, 0, len(keys))
	for _, k := range keys {
		d, err := z.Loader.Load(k, table)
		if err != nil {
			return nil, errors.Wrapf(err, "load all files of table %q", table)
		}
		out = append(out, d)
	}
	return out, nil
}
