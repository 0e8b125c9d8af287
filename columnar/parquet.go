package columnar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/tabular"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Key value metadata written to every file. Parquet group fields are sorted by
// name so the dataset column order and logical types travel in the footer.
const (
	metaColumns = "totepipe.columns"
	metaTypes   = "totepipe.types"
)

// Logical column types.
const (
	typeInt64   = "int64"
	typeDouble  = "double"
	typeBoolean = "boolean"
	typeString  = "string"
	typeDecimal = "decimal"
)

var ErrUnsupportedValue = errors.New("unsupported value type")

// Encode writes d as a parquet file using codec. Every column is optional so
// nil values survive the round trip.
func Encode(d *tabular.Dataset, codec Codec) ([]byte, error) {
	columns := d.Columns()
	types := make([]string, len(columns))
	group := parquet.Group{}
	for i, c := range columns {
		values, _ := d.Column(c)
		t, err := inferType(values)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", c)
		}
		types[i] = t
		group[c] = parquet.Optional(nodeFor(t))
	}
	schema := parquet.NewSchema("dataset", group)
	// Leaf index of each dataset column in the sorted schema.
	leaf := make(map[string]int, len(columns))
	for i, f := range schema.Fields() {
		leaf[f.Name()] = i
	}
	colJSON, _ := json.Marshal(columns)
	typeJSON, _ := json.Marshal(types)

	if codec.codec == nil {
		codec, _ = ParseCodec(constants.DefaultCompression)
	}
	buf := bytes.Buffer{}
	w := parquet.NewWriter(&buf, schema,
		parquet.Compression(codec.codec),
		parquet.KeyValueMetadata(metaColumns, string(colJSON)),
		parquet.KeyValueMetadata(metaTypes, string(typeJSON)),
	)
	rows := make([]parquet.Row, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		values := d.Row(i).Values()
		row := make(parquet.Row, len(columns))
		for j, c := range columns {
			idx := leaf[c]
			v := toParquet(values[j], types[j])
			if v == nil {
				row[idx] = parquet.NullValue().Level(0, 0, idx)
			} else {
				row[idx] = parquet.ValueOf(v).Level(0, 1, idx)
			}
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		if _, err := w.WriteRows(rows); err != nil {
			return nil, errors.Wrap(err, "write parquet rows")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close parquet writer")
	}
	return buf.Bytes(), nil
}

// Decode reads a file written by Encode back into a Dataset.
// Files written elsewhere are read with the schema's column order.
func Decode(b []byte) (*tabular.Dataset, error) {
	f, err := parquet.OpenFile(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, errors.Wrap(err, "open parquet")
	}
	fields := f.Schema().Fields()
	columns := make([]string, 0, len(fields))
	if s, ok := f.Lookup(metaColumns); ok {
		if err := json.Unmarshal([]byte(s), &columns); err != nil {
			return nil, errors.Wrap(err, "read column order")
		}
	} else {
		for _, fld := range fields {
			columns = append(columns, fld.Name())
		}
	}
	types := make([]string, len(columns))
	if s, ok := f.Lookup(metaTypes); ok {
		if err := json.Unmarshal([]byte(s), &types); err != nil {
			return nil, errors.Wrap(err, "read column types")
		}
	}
	if len(types) != len(columns) {
		return nil, errors.Errorf("parquet metadata lists %v types for %v columns", len(types), len(columns))
	}
	// Map leaf index to dataset position.
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	leafPos := make([]int, len(fields))
	for i, fld := range fields {
		p, ok := pos[fld.Name()]
		if !ok {
			return nil, errors.Errorf("parquet column %q missing from metadata", fld.Name())
		}
		leafPos[i] = p
	}

	d := tabular.New(columns...)
	buf := make([]parquet.Row, 64)
	for _, rg := range f.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, r := range buf[:n] {
				values := make([]interface{}, len(columns))
				for _, v := range r {
					p := leafPos[v.Column()]
					x, err := fromParquet(v, types[p])
					if err != nil {
						rows.Close()
						return nil, errors.Wrapf(err, "column %q", columns[p])
					}
					values[p] = x
				}
				if err := d.Append(values...); err != nil {
					rows.Close()
					return nil, err
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, errors.Wrap(err, "read parquet rows")
			}
		}
		rows.Close()
	}
	return d, nil
}

func inferType(values []interface{}) (string, error) {
	t := ""
	for _, v := range values {
		var vt string
		switch v.(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint8, uint16, uint32:
			vt = typeInt64
		case float32, float64:
			vt = typeDouble
		case bool:
			vt = typeBoolean
		case string, []byte, time.Time:
			vt = typeString
		case decimal.Decimal:
			vt = typeDecimal
		default:
			return "", errors.Wrapf(ErrUnsupportedValue, "%T", v)
		}
		switch {
		case t == "" || t == vt:
			t = vt
		case (t == typeInt64 && vt == typeDouble) || (t == typeDouble && vt == typeInt64):
			t = typeDouble
		default:
			t = typeString
		}
	}
	if t == "" {
		t = typeString
	}
	return t, nil
}

func nodeFor(t string) parquet.Node {
	switch t {
	case typeInt64:
		return parquet.Int(64)
	case typeDouble:
		return parquet.Leaf(parquet.DoubleType)
	case typeBoolean:
		return parquet.Leaf(parquet.BooleanType)
	}
	return parquet.String()
}

// toParquet converts v to the Go type backing the column type t.
func toParquet(v interface{}, t string) interface{} {
	if v == nil {
		return nil
	}
	switch t {
	case typeInt64:
		switch n := v.(type) {
		case int:
			return int64(n)
		case int8:
			return int64(n)
		case int16:
			return int64(n)
		case int32:
			return int64(n)
		case uint8:
			return int64(n)
		case uint16:
			return int64(n)
		case uint32:
			return int64(n)
		}
		return v
	case typeDouble:
		switch n := v.(type) {
		case float32:
			return float64(n)
		case float64:
			return n
		}
		return float64(toParquet(v, typeInt64).(int64))
	case typeBoolean:
		return v
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(constants.TimeFormatSqlTimestamp)
	case decimal.Decimal:
		return s.String()
	}
	return fmt.Sprint(v)
}

func fromParquet(v parquet.Value, t string) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean(), nil
	case parquet.Int32:
		return int64(v.Int32()), nil
	case parquet.Int64:
		return v.Int64(), nil
	case parquet.Float:
		return float64(v.Float()), nil
	case parquet.Double:
		return v.Double(), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		s := string(v.ByteArray())
		if t == typeDecimal {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, errors.Wrapf(err, "decimal %q", s)
			}
			return d, nil
		}
		return s, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedValue, "parquet kind %v", v.Kind())
}
