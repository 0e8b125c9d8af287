package transform

import (
	"time"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/helper"
	"github.com/fscifa/totepipe/tabular"
	"github.com/fscifa/totepipe/zone"
)

// DimDateColumns is the column order of dim_date.
var DimDateColumns = []string{"date_id", "year", "month", "day", "day_of_week", "day_name", "month_name", "quarter"}

// DimDate builds one row per distinct calendar date found in the date columns of
// fact_sales_order. Payment and delivery dates that do not parse are left out;
// created and last updated dates must parse.
func DimDate(fact *tabular.Dataset) (*tabular.Dataset, error) {
	if fact.Len() == 0 {
		return nil, zone.Malformed(ErrEmptyInput, "table %q has no rows", constants.TableFactSalesOrder)
	}
	required := []string{"created_date", "last_updated_date"}
	optional := []string{"agreed_payment_date", "agreed_delivery_date"}
	if err := fact.Require(append(required, optional...)...); err != nil {
		return nil, err
	}
	pool := make([]time.Time, 0, fact.Len()*4)
	for _, c := range required {
		values, _ := fact.Column(c)
		for i, v := range values {
			t, ok := parseDate(v)
			if !ok {
				return nil, zone.Malformed(zone.ErrBadTimestamp, "column %q row %v: %v", c, i, v)
			}
			pool = append(pool, t)
		}
	}
	for _, c := range optional {
		values, _ := fact.Column(c)
		for _, v := range values {
			if t, ok := parseDate(v); ok {
				pool = append(pool, t)
			}
		}
	}

	d := tabular.New(DimDateColumns...)
	seen := make(map[string]struct{}, len(pool))
	for _, t := range pool {
		id := t.Format(constants.TimeFormatDate)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		err := d.Append(
			id,
			int64(t.Year()),
			int64(t.Month()),
			int64(t.Day()),
			int64((t.Weekday()+6)%7), // Monday is 0
			t.Weekday().String(),
			t.Month().String(),
			int64((t.Month()-1)/3+1),
		)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// parseDate accepts a date, or a timestamp whose date part is used.
func parseDate(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC), true
	}
	s := helper.GetStringFromInterface(v)
	if t, err := time.Parse(constants.TimeFormatDate, s); err == nil {
		return t, true
	}
	if t, err := parseTimestamp(s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
