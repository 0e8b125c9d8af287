package zone

import (
	"sort"

	"github.com/fscifa/totepipe/aws/s3"
	"github.com/pkg/errors"
)

// Selector picks files for a table out of one bucket.
type Selector struct {
	client    s3.BasicClient
	watermark *Watermark
}

func NewSelector(client s3.BasicClient) *Selector {
	return &Selector{client: client, watermark: NewWatermark(client)}
}

// All returns every key of table in ascending order, which is oldest first.
// It returns ErrNotFound if there are none.
func (s *Selector) All(table string) ([]string, error) {
	keys, err := s.client.List(Prefix(table))
	if err != nil {
		return nil, &StorageError{Bucket: s.client.Bucket(), Key: Prefix(table), Op: "list", Err: err}
	}
	if len(keys) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "table %q in bucket %q", table, s.client.Bucket())
	}
	out := make([]string, len(keys))
	copy(out, keys)
	sort.Strings(out)
	return out, nil
}

// Newest returns the lexicographically greatest key of table without consulting the watermark.
func (s *Selector) Newest(table string) (string, error) {
	keys, err := s.All(table)
	if err != nil {
		return "", err
	}
	return keys[len(keys)-1], nil
}

// SelectLatest returns the newest key of table if its embedded timestamp equals the
// watermark exactly. Otherwise it returns a *NoNewDataError.
func (s *Selector) SelectLatest(table string) (string, error) {
	candidate, err := s.Newest(table)
	if err != nil {
		return "", err
	}
	mark, err := s.watermark.Read()
	if err != nil {
		return "", err
	}
	_, ts, _, err := ParseKey(candidate)
	if err != nil {
		return "", err
	}
	if ts != mark {
		return "", &NoNewDataError{Table: table, Candidate: candidate, Watermark: mark}
	}
	return candidate, nil
}
