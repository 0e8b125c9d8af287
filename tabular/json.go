package tabular

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/fscifa/totepipe/constants"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ReadRecords decodes the envelope {"<table>": [ {...}, ... ]} into a Dataset.
// Columns take the key order of the records as first seen. Nested objects are
// flattened into dotted column names and arrays are kept as JSON text.
// Whole numbers become int64 and other numbers float64.
func ReadRecords(r io.Reader, table string) (*Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var d *Dataset
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(ErrMalformedRecords, err.Error())
		}
		key, _ := tok.(string)
		if key != table {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}
		if d, err = readArray(dec); err != nil {
			return nil, errors.Wrapf(err, "table %q", table)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errors.Wrapf(ErrMalformedRecords, "missing key %q", table)
	}
	return d, nil
}

type field struct {
	name  string
	value interface{}
}

func readArray(dec *json.Decoder) (*Dataset, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	records := make([][]field, 0)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		rec := make([]field, 0)
		if err := readObject(dec, "", &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	// Columns in first-seen order.
	columns := make([]string, 0)
	seen := make(map[string]struct{})
	for _, rec := range records {
		for _, f := range rec {
			if _, ok := seen[f.name]; !ok {
				seen[f.name] = struct{}{}
				columns = append(columns, f.name)
			}
		}
	}
	d, err := newDataset(columns)
	if err != nil {
		return nil, err
	}
	d.rows = make([][]interface{}, len(records))
	for i, rec := range records {
		row := make([]interface{}, len(columns))
		for _, f := range rec {
			row[d.index[f.name]] = f.value
		}
		d.rows[i] = row
	}
	return d, nil
}

// readObject reads the members of an object whose opening brace has been consumed.
func readObject(dec *json.Decoder, prefix string, rec *[]field) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(ErrMalformedRecords, err.Error())
		}
		name, _ := tok.(string)
		if prefix != "" {
			name = prefix + "." + name
		}
		tok, err = dec.Token()
		if err != nil {
			return errors.Wrap(ErrMalformedRecords, err.Error())
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				if err := readObject(dec, name, rec); err != nil {
					return err
				}
			case '[':
				v, err := readGeneric(dec, t)
				if err != nil {
					return err
				}
				b, err := json.Marshal(v)
				if err != nil {
					return errors.Wrap(ErrMalformedRecords, err.Error())
				}
				*rec = append(*rec, field{name: name, value: string(b)})
			default:
				return errors.Wrapf(ErrMalformedRecords, "unexpected %v", t)
			}
		default:
			*rec = append(*rec, field{name: name, value: scalar(t)})
		}
	}
	return expectDelim(dec, '}')
}

// readGeneric decodes the value opened by delim without keeping key order.
func readGeneric(dec *json.Decoder, delim json.Delim) (interface{}, error) {
	if delim == '[' {
		out := make([]interface{}, 0)
		for dec.More() {
			v, err := nextGeneric(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, expectDelim(dec, ']')
	}
	out := make(map[string]interface{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(ErrMalformedRecords, err.Error())
		}
		k, _ := tok.(string)
		v, err := nextGeneric(dec)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, expectDelim(dec, '}')
}

func nextGeneric(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(ErrMalformedRecords, err.Error())
	}
	if d, ok := tok.(json.Delim); ok {
		return readGeneric(dec, d)
	}
	return scalar(tok), nil
}

func skipValue(dec *json.Decoder) error {
	_, err := nextGeneric(dec)
	return err
}

func scalar(tok json.Token) interface{} {
	if n, ok := tok.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return f
	}
	return tok
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrapf(ErrMalformedRecords, "expected %v: %v", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.Wrapf(ErrMalformedRecords, "expected %v got %v", want, tok)
	}
	return nil
}

// WriteRecords encodes d as {"<table>": [ {...}, ... ]} with keys in column order.
// Times use the source timestamp layout and decimals are written as strings.
func WriteRecords(w io.Writer, table string, d *Dataset) error {
	bw := bufio.NewWriter(w)
	name, _ := json.Marshal(table)
	bw.WriteString("{")
	bw.Write(name)
	bw.WriteString(":[")
	keys := make([][]byte, len(d.columns))
	for i, c := range d.columns {
		keys[i], _ = json.Marshal(c)
	}
	for i, r := range d.rows {
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("{")
		for j, v := range r {
			if j > 0 {
				bw.WriteString(",")
			}
			b, err := marshalValue(v)
			if err != nil {
				return errors.Wrapf(err, "table %q column %q row %v", table, d.columns[j], i)
			}
			bw.Write(keys[j])
			bw.WriteString(":")
			bw.Write(b)
		}
		bw.WriteString("}")
	}
	bw.WriteString("]}")
	return bw.Flush()
}

// EncodeRecords is WriteRecords into a byte slice.
func EncodeRecords(table string, d *Dataset) ([]byte, error) {
	buf := bytes.Buffer{}
	if err := WriteRecords(&buf, table, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalValue(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case time.Time:
		return json.Marshal(t.Format(constants.TimeFormatSqlTimestamp))
	case decimal.Decimal:
		return json.Marshal(t.String())
	case []byte:
		return json.Marshal(string(t))
	}
	return json.Marshal(v)
}
