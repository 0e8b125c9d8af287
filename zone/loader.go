package zone

import (
	"bytes"
	"strings"

	"github.com/fscifa/totepipe/aws/s3"
	"github.com/fscifa/totepipe/columnar"
	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/tabular"
)

// Decoder turns the bytes of one file of table into a Dataset.
type Decoder func(b []byte, table string) (*tabular.Dataset, error)

// DecodeJSON reads the {"<table>": [ ... ]} envelope.
func DecodeJSON(b []byte, table string) (*tabular.Dataset, error) {
	return tabular.ReadRecords(bytes.NewReader(b), table)
}

// DecodeParquet reads a file written by columnar.Encode.
func DecodeParquet(b []byte, _ string) (*tabular.Dataset, error) {
	return columnar.Decode(b)
}

// Loader materialises files of one extension from one bucket.
type Loader struct {
	client s3.BasicClient
	ext    string
	decode Decoder
}

func NewLoader(client s3.BasicClient, ext string, decode Decoder) *Loader {
	return &Loader{client: client, ext: ext, decode: decode}
}

// NewRawLoader reads JSON snapshots.
func NewRawLoader(client s3.BasicClient) *Loader {
	return NewLoader(client, constants.RawFileExt, DecodeJSON)
}

// NewProcessedLoader reads parquet tables.
func NewProcessedLoader(client s3.BasicClient) *Loader {
	return NewLoader(client, constants.ProcessedFileExt, DecodeParquet)
}

// Load fetches key and decodes it as table.
func (l *Loader) Load(key, table string) (*tabular.Dataset, error) {
	if !strings.HasPrefix(key, Prefix(table)) {
		return nil, Malformed(ErrIncorrectTableName, "key %q is not a file of table %q", key, table)
	}
	if !strings.HasSuffix(key, "."+l.ext) {
		return nil, Malformed(ErrWrongFileType, "key %q is not a .%v file", key, l.ext)
	}
	b, err := l.client.Get(key)
	if err != nil {
		return nil, &StorageError{Bucket: l.client.Bucket(), Key: key, Op: "get", Err: err}
	}
	d, err := l.decode(b, table)
	if err != nil {
		return nil, Malformed(err, "key %q in bucket %q", key, l.client.Bucket())
	}
	return d, nil
}
