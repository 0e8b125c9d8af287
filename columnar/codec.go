// Package columnar writes and reads Datasets as parquet files.
package columnar

import (
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/pkg/errors"
)

var ErrUnknownCodec = errors.New("unknown compression codec")

// Codec names accepted by ParseCodec.
const (
	CodecSnappy = "snappy"
	CodecGzip   = "gzip"
	CodecBrotli = "brotli"
	CodecNone   = "none"
)

// Codecs lists the accepted codec names.
var Codecs = []string{CodecSnappy, CodecGzip, CodecBrotli, CodecNone}

// Codec is a validated compression choice.
type Codec struct {
	name  string
	codec compress.Codec
}

func (c Codec) String() string {
	return c.name
}

// ParseCodec validates name against the closed set of codecs.
// Callers parse the codec before doing any I/O.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CodecSnappy:
		return Codec{name: CodecSnappy, codec: &parquet.Snappy}, nil
	case CodecGzip:
		return Codec{name: CodecGzip, codec: &parquet.Gzip}, nil
	case CodecBrotli:
		return Codec{name: CodecBrotli, codec: &parquet.Brotli}, nil
	case CodecNone:
		return Codec{name: CodecNone, codec: &parquet.Uncompressed}, nil
	}
	return Codec{}, errors.Wrapf(ErrUnknownCodec, "%q, expected one of %v", name, strings.Join(Codecs, ", "))
}
