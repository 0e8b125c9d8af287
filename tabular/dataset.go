// Package tabular holds Dataset, an in-memory table of named columns shared by
// every stage of the pipeline, and the operations the transformers build on.
package tabular

import (
	"fmt"
	"strings"

	om "github.com/cevaris/ordered_map"
	"github.com/fscifa/totepipe/helper"
	"github.com/pkg/errors"
)

var (
	ErrColumnNotFound   = errors.New("column not found")
	ErrColumnExists     = errors.New("column already exists")
	ErrRowWidth         = errors.New("row width does not match columns")
	ErrMalformedRecords = errors.New("malformed records")
)

// Dataset is an ordered set of named columns with a shared row count.
// Operations never mutate the receiver; they return a new Dataset.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

// New returns an empty Dataset with the given columns.
// It panics if a column name is repeated.
func New(columns ...string) *Dataset {
	d, err := newDataset(columns)
	if err != nil {
		panic(err)
	}
	return d
}

func newDataset(columns []string) (*Dataset, error) {
	d := &Dataset{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, ok := d.index[c]; ok {
			return nil, errors.Wrapf(ErrColumnExists, "%q", c)
		}
		d.columns[i] = c
		d.index[c] = i
	}
	return d, nil
}

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

func (d *Dataset) Width() int {
	return len(d.columns)
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Require returns ErrColumnNotFound naming every missing column.
func (d *Dataset) Require(columns ...string) error {
	missing := make([]string, 0)
	for _, c := range columns {
		if !d.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrColumnNotFound, "%v", strings.Join(missing, ", "))
	}
	return nil
}

// Append adds a row. The number of values must match the number of columns.
func (d *Dataset) Append(values ...interface{}) error {
	if len(values) != len(d.columns) {
		return errors.Wrapf(ErrRowWidth, "got %v values for %v columns", len(values), len(d.columns))
	}
	row := make([]interface{}, len(values))
	copy(row, values)
	d.rows = append(d.rows, row)
	return nil
}

// Row returns a read-only view of row i.
func (d *Dataset) Row(i int) Row {
	return Row{d: d, i: i}
}

// Column returns a copy of the values held in the named column.
func (d *Dataset) Column(name string) ([]interface{}, error) {
	idx, ok := d.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrColumnNotFound, "%q", name)
	}
	out := make([]interface{}, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Records returns every row as a map of column name to value.
func (d *Dataset) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, len(d.rows))
	for i := range d.rows {
		out[i] = d.Row(i).Map()
	}
	return out
}

// Drop removes the named columns. Every column must exist.
func (d *Dataset) Drop(columns ...string) (*Dataset, error) {
	if err := d.Require(columns...); err != nil {
		return nil, errors.Wrap(err, "drop")
	}
	drop := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		drop[c] = struct{}{}
	}
	keep := make([]string, 0, len(d.columns))
	for _, c := range d.columns {
		if _, ok := drop[c]; !ok {
			keep = append(keep, c)
		}
	}
	return d.Select(keep...)
}

// Select returns the named columns in the order given.
func (d *Dataset) Select(columns ...string) (*Dataset, error) {
	if err := d.Require(columns...); err != nil {
		return nil, errors.Wrap(err, "select")
	}
	out, err := newDataset(columns)
	if err != nil {
		return nil, err
	}
	src := make([]int, len(columns))
	for i, c := range columns {
		src[i] = d.index[c]
	}
	out.rows = make([][]interface{}, len(d.rows))
	for i, r := range d.rows {
		row := make([]interface{}, len(columns))
		for j, s := range src {
			row[j] = r[s]
		}
		out.rows[i] = row
	}
	return out, nil
}

// Rename applies the old:new column names held in renames, in insertion order,
// so a later entry sees the result of an earlier one.
func (d *Dataset) Rename(renames *om.OrderedMap) (*Dataset, error) {
	columns := d.Columns()
	index := make(map[string]int, len(columns))
	for k, v := range d.index {
		index[k] = v
	}
	iter := renames.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		from, to := fmt.Sprint(kv.Key), fmt.Sprint(kv.Value)
		if from == to {
			continue
		}
		idx, found := index[from]
		if !found {
			return nil, errors.Wrapf(ErrColumnNotFound, "rename %q", from)
		}
		if _, exists := index[to]; exists {
			return nil, errors.Wrapf(ErrColumnExists, "rename %q to %q", from, to)
		}
		delete(index, from)
		index[to] = idx
		columns[idx] = to
	}
	out := &Dataset{columns: columns, index: index, rows: make([][]interface{}, len(d.rows))}
	copy(out.rows, d.rows)
	return out, nil
}

// WithColumn sets the named column to the values produced by fn for each row.
// A new column is appended; an existing column is replaced in place.
func (d *Dataset) WithColumn(name string, fn func(r Row) (interface{}, error)) (*Dataset, error) {
	columns := d.Columns()
	idx, exists := d.index[name]
	if !exists {
		idx = len(columns)
		columns = append(columns, name)
	}
	out, err := newDataset(columns)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]interface{}, len(d.rows))
	for i, r := range d.rows {
		v, err := fn(d.Row(i))
		if err != nil {
			return nil, errors.Wrapf(err, "column %q row %v", name, i)
		}
		row := make([]interface{}, len(columns))
		copy(row, r)
		row[idx] = v
		out.rows[i] = row
	}
	return out, nil
}

// Filter keeps the rows for which fn returns true.
func (d *Dataset) Filter(fn func(r Row) (bool, error)) (*Dataset, error) {
	out := &Dataset{columns: d.Columns(), index: d.index, rows: make([][]interface{}, 0, len(d.rows))}
	for i, r := range d.rows {
		keep, err := fn(d.Row(i))
		if err != nil {
			return nil, errors.Wrapf(err, "filter row %v", i)
		}
		if keep {
			out.rows = append(out.rows, r)
		}
	}
	return out, nil
}

// Distinct removes rows that equal an earlier row in every column, keeping the first occurrence.
func (d *Dataset) Distinct() *Dataset {
	out := &Dataset{columns: d.Columns(), index: d.index, rows: make([][]interface{}, 0, len(d.rows))}
	seen := make(map[string]struct{}, len(d.rows))
	for _, r := range d.rows {
		k := rowKey(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.rows = append(out.rows, r)
	}
	return out
}

// LeftJoin keeps every row of d and adds the columns of right whose rightKey value equals
// the leftKey value. Unmatched rows get nil in the added columns and nil keys never match.
// If right holds several rows for one key the last one wins, so the row count of d is preserved.
// When leftKey and rightKey share a name the key column appears once.
func (d *Dataset) LeftJoin(right *Dataset, leftKey, rightKey string) (*Dataset, error) {
	if err := d.Require(leftKey); err != nil {
		return nil, errors.Wrap(err, "left join")
	}
	if err := right.Require(rightKey); err != nil {
		return nil, errors.Wrap(err, "left join")
	}
	// Work out the columns taken from the right.
	rightCols := make([]int, 0, len(right.columns))
	columns := d.Columns()
	for i, c := range right.columns {
		if c == rightKey && leftKey == rightKey {
			continue
		}
		if d.HasColumn(c) {
			return nil, errors.Wrapf(ErrColumnExists, "left join on %q", c)
		}
		rightCols = append(rightCols, i)
		columns = append(columns, c)
	}
	out, err := newDataset(columns)
	if err != nil {
		return nil, err
	}
	// Index the right rows by key.
	lookup := make(map[string][]interface{}, len(right.rows))
	rk := right.index[rightKey]
	for _, r := range right.rows {
		if r[rk] == nil {
			continue
		}
		lookup[valueKey(r[rk])] = r
	}
	lk := d.index[leftKey]
	out.rows = make([][]interface{}, len(d.rows))
	for i, r := range d.rows {
		row := make([]interface{}, len(columns))
		copy(row, r)
		if r[lk] != nil {
			if match, ok := lookup[valueKey(r[lk])]; ok {
				for j, src := range rightCols {
					row[len(r)+j] = match[src]
				}
			}
		}
		out.rows[i] = row
	}
	return out, nil
}

// Concat stacks datasets vertically. Columns are matched by name; the result takes the
// column order of the first dataset and columns missing from a later dataset are nil.
// Columns only present in later datasets are appended.
func Concat(sets ...*Dataset) (*Dataset, error) {
	if len(sets) == 0 {
		return nil, errors.New("concat needs at least one dataset")
	}
	columns := sets[0].Columns()
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		seen[c] = struct{}{}
	}
	for _, s := range sets[1:] {
		for _, c := range s.columns {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				columns = append(columns, c)
			}
		}
	}
	out, err := newDataset(columns)
	if err != nil {
		return nil, err
	}
	for _, s := range sets {
		for _, r := range s.rows {
			row := make([]interface{}, len(columns))
			for i, c := range columns {
				if idx, ok := s.index[c]; ok {
					row[i] = r[idx]
				}
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Row is a read-only view of one row in a Dataset.
type Row struct {
	d *Dataset
	i int
}

// Get returns the value held in the named column.
// It panics if the column does not exist; call Dataset.Require first.
func (r Row) Get(name string) interface{} {
	idx, ok := r.d.index[name]
	if !ok {
		panic(fmt.Sprintf("invalid column name %q supplied while trying to fetch value from row %v", name, r.i))
	}
	return r.d.rows[r.i][idx]
}

// Index is the position of the row in its Dataset.
func (r Row) Index() int {
	return r.i
}

// Values returns a copy of the row values in column order.
func (r Row) Values() []interface{} {
	out := make([]interface{}, len(r.d.columns))
	copy(out, r.d.rows[r.i])
	return out
}

// Map returns the row as column name to value.
func (r Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.d.columns))
	for i, c := range r.d.columns {
		m[c] = r.d.rows[r.i][i]
	}
	return m
}

// valueKey is the comparison key for a single value; nil never reaches here for joins.
func valueKey(v interface{}) string {
	return helper.GetStringFromInterface(v)
}

// rowKey is the full-row comparison key. Each value carries its Go type so 1 and "1" differ.
func rowKey(r []interface{}) string {
	b := strings.Builder{}
	for _, v := range r {
		if v == nil {
			b.WriteString("\x00n")
		} else {
			fmt.Fprintf(&b, "\x00%T\x00", v)
			b.WriteString(helper.GetStringFromInterface(v))
		}
	}
	return b.String()
}
