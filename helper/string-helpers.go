package helper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	om "github.com/cevaris/ordered_map"
	"github.com/fscifa/totepipe/constants"
	"github.com/shopspring/decimal"
)

// TokensToOrderedMap converts a string of the form 'k1:v1,k2:v2' into an ordered map and returns a pointer to it.
// 1) Split on comma to find each key:value pair.
// 2) Split on colon to separate the key from the value.
// Spaces around keys and values are trimmed.
func TokensToOrderedMap(s string) *om.OrderedMap {
	o := om.NewOrderedMap()
	for _, token := range strings.Split(s, ",") {
		x := strings.Split(token, ":")
		if len(x) >= 2 { // if there is a key:value...
			o.Set(strings.TrimSpace(x[0]), strings.TrimSpace(x[1]))
		}
	}
	return o
}

// CsvToStringSliceTrimSpaces converts a string of the form 'f1, f2,f3' into a slice of string values.
// Empty tokens are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	retval := make([]string, 0)
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// GetStringFromInterface converts an interface{} value to a string.
// Times are rendered in the source database timestamp format.
// nil becomes the empty string.
func GetStringFromInterface(input interface{}) (retval string) {
	switch v := input.(type) {
	case int, int16, int32, int64, int8, uint8, uint16, uint32, uint64:
		retval = fmt.Sprintf("%d", v)
	case string:
		retval = v
	case float32:
		retval = strconv.FormatFloat(float64(v), 'f', -1, 32) // use 'f' to convert float to string without an exponent i.e. preserve all decimal points.
	case float64:
		retval = strconv.FormatFloat(v, 'f', -1, 64)
	case decimal.Decimal:
		retval = v.String()
	case time.Time:
		retval = v.Format(constants.TimeFormatSqlTimestamp)
	case []uint8:
		retval = string(v)
	case bool:
		retval = strconv.FormatBool(v)
	case nil:
		retval = ""
	default:
		retval = fmt.Sprintf("%v", v)
	}
	return
}
