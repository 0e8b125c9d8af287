package transform

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/diegoholiveira/jsonlogic"
	"github.com/fscifa/totepipe/tabular"
	"github.com/pkg/errors"
)

var ErrInvalidRule = errors.New("invalid JSON Logic rule")

// Filter keeps the rows of a raw snapshot for which a JSON Logic rule returns true.
type Filter struct {
	rule string
}

// NewFilter validates rule.
func NewFilter(rule string) (*Filter, error) {
	if !jsonlogic.IsValid(strings.NewReader(rule)) {
		return nil, errors.Wrapf(ErrInvalidRule, "%v", rule)
	}
	return &Filter{rule: rule}, nil
}

// Filters holds one Filter per raw table name.
type Filters map[string]*Filter

// NewFilters validates a rule per table.
func NewFilters(rules map[string]json.RawMessage) (Filters, error) {
	out := make(Filters, len(rules))
	for table, rule := range rules {
		f, err := NewFilter(string(rule))
		if err != nil {
			return nil, errors.Wrapf(err, "table %q", table)
		}
		out[table] = f
	}
	return out, nil
}

// Apply returns d unchanged when no filter is set for table.
func (f Filters) Apply(table string, d *tabular.Dataset) (*tabular.Dataset, error) {
	if d == nil {
		return nil, nil
	}
	filter, ok := f[table]
	if !ok || filter == nil {
		return d, nil
	}
	out, err := filter.Apply(d)
	if err != nil {
		return nil, errors.Wrapf(err, "filter table %q", table)
	}
	return out, nil
}

// Apply evaluates the rule against each row marshalled to JSON.
func (f *Filter) Apply(d *tabular.Dataset) (*tabular.Dataset, error) {
	var result bytes.Buffer
	return d.Filter(func(r tabular.Row) (bool, error) {
		data, err := json.Marshal(r.Map())
		if err != nil {
			return false, errors.Wrap(err, "error marshalling data before applying JSON logic")
		}
		result.Reset()
		if err := jsonlogic.Apply(strings.NewReader(f.rule), bytes.NewReader(data), &result); err != nil {
			return false, errors.Wrap(err, "error applying JSON logic")
		}
		return strings.TrimSpace(result.String()) == "true", nil
	})
}
