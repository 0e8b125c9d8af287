// Package zone implements the storage conventions shared by the pipeline stages:
// object keys of the form <table>/<table>-<timestamp>.<ext>, the last_updated.txt
// watermark and the selection of the file that belongs to the current watermark.
package zone

import (
	"regexp"
	"strings"
	"time"

	"github.com/fscifa/totepipe/constants"
)

var rexpWatermark = regexp.MustCompile(constants.TimeFormatWatermarkRegex)

// Timestamp renders t in the watermark layout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(constants.TimeFormatWatermark)
}

// ValidTimestamp reports whether s is in the watermark layout.
func ValidTimestamp(s string) bool {
	return rexpWatermark.MatchString(s)
}

// Key returns <table>/<table>-<ts>.<ext>.
func Key(table, ts, ext string) string {
	return table + "/" + table + "-" + ts + "." + ext
}

// Prefix returns the directory-style prefix under which Key places files of table.
func Prefix(table string) string {
	return table + "/" + table + "-"
}

// ParseKey splits a key produced by Key into its parts.
func ParseKey(key string) (table, ts, ext string, err error) {
	slash := strings.LastIndex(key, "/")
	if slash <= 0 {
		return "", "", "", Malformed(ErrIncorrectTableName, "key %q has no table directory", key)
	}
	table = key[:slash]
	base := key[slash+1:]
	if !strings.HasPrefix(base, table+"-") {
		return "", "", "", Malformed(ErrIncorrectTableName, "key %q does not start with table %q", key, table)
	}
	dot := strings.LastIndex(base, ".")
	if dot < len(table)+1 {
		return "", "", "", Malformed(ErrWrongFileType, "key %q has no file extension", key)
	}
	ts = base[len(table)+1 : dot]
	ext = base[dot+1:]
	return table, ts, ext, nil
}
