package zone

import (
	"github.com/fscifa/totepipe/aws/s3"
	"github.com/fscifa/totepipe/constants"
	"github.com/pkg/errors"
)

// Watermark is a single object whose whole body is one timestamp.
// Comparison against file names is byte for byte so the body is never trimmed.
type Watermark struct {
	client s3.BasicClient
	key    string
}

// NewWatermark returns the last_updated.txt marker of the client's bucket.
func NewWatermark(client s3.BasicClient) *Watermark {
	return &Watermark{client: client, key: constants.WatermarkKey}
}

// NewLoadMarker returns the last_loaded.txt marker of the client's bucket.
func NewLoadMarker(client s3.BasicClient) *Watermark {
	return &Watermark{client: client, key: constants.LoadMarkerKey}
}

func (w *Watermark) Key() string {
	return w.key
}

// Read returns ErrMarkerMissing if the object does not exist.
func (w *Watermark) Read() (string, error) {
	b, err := w.client.Get(w.key)
	if err != nil {
		if errors.Is(err, s3.ErrKeyNotFound) {
			return "", errors.Wrapf(ErrMarkerMissing, "s3://%v/%v", w.client.Bucket(), w.key)
		}
		return "", &StorageError{Bucket: w.client.Bucket(), Key: w.key, Op: "get", Err: err}
	}
	return string(b), nil
}

// Write stores ts, which must be in the watermark layout.
func (w *Watermark) Write(ts string) error {
	if !ValidTimestamp(ts) {
		return Malformed(ErrBadTimestamp, "watermark %q", ts)
	}
	if err := w.client.Put(w.key, []byte(ts)); err != nil {
		return &StorageError{Bucket: w.client.Bucket(), Key: w.key, Op: "put", Err: err}
	}
	return nil
}
