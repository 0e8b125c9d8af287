package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/helper"
	"github.com/fscifa/totepipe/tabular"
	"github.com/fscifa/totepipe/zone"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrEmptyInput = errors.New("empty input")

// FactSalesOrderColumns is the fixed column order of fact_sales_order.
var FactSalesOrderColumns = []string{
	"sales_order_id",
	"created_date",
	"created_time",
	"last_updated_date",
	"last_updated_time",
	"sales_staff_id",
	"counterparty_id",
	"units_sold",
	"unit_price",
	"currency_id",
	"design_id",
	"agreed_payment_date",
	"agreed_delivery_date",
	"agreed_delivery_location_id",
}

// Layouts accepted for source timestamps.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// FactSalesOrder builds fact_sales_order from a sales_order snapshot.
// created_at and last_updated are split into date and time columns and any
// unparseable timestamp fails the whole table.
func FactSalesOrder(sales *tabular.Dataset) (*tabular.Dataset, error) {
	if sales.Len() == 0 {
		return nil, zone.Malformed(ErrEmptyInput, "table %q has no rows", constants.TableSalesOrder)
	}
	if err := sales.Require("created_at", "last_updated", "staff_id", "unit_price"); err != nil {
		return nil, err
	}
	d := sales
	var err error
	for _, src := range []string{"created_at", "last_updated"} {
		prefix := strings.TrimSuffix(src, "_at")
		if d, err = splitTimestamp(d, src, prefix+"_date", prefix+"_time"); err != nil {
			return nil, err
		}
	}
	d, err = d.WithColumn("unit_price", func(r tabular.Row) (interface{}, error) {
		return toDecimal(r.Get("unit_price"))
	})
	if err != nil {
		return nil, zone.Malformed(err, "column %q", "unit_price")
	}
	if d, err = d.Rename(helper.TokensToOrderedMap("staff_id:sales_staff_id")); err != nil {
		return nil, err
	}
	return d.Select(FactSalesOrderColumns...)
}

// splitTimestamp adds a date and a time column built from src and drops src.
func splitTimestamp(d *tabular.Dataset, src, dateCol, timeCol string) (*tabular.Dataset, error) {
	parsed := make([]time.Time, d.Len())
	for i := 0; i < d.Len(); i++ {
		t, err := parseTimestamp(d.Row(i).Get(src))
		if err != nil {
			return nil, zone.Malformed(zone.ErrBadTimestamp, "column %q row %v: %v", src, i, err)
		}
		parsed[i] = t
	}
	d, err := d.WithColumn(dateCol, func(r tabular.Row) (interface{}, error) {
		return parsed[r.Index()].Format(constants.TimeFormatDate), nil
	})
	if err != nil {
		return nil, err
	}
	d, err = d.WithColumn(timeCol, func(r tabular.Row) (interface{}, error) {
		return formatTimeOfDay(parsed[r.Index()]), nil
	})
	if err != nil {
		return nil, err
	}
	return d.Drop(src)
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", t)
	case nil:
		return time.Time{}, errors.New("missing timestamp")
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
}

// formatTimeOfDay renders HH:MM:SS with a six digit fraction only when the
// microseconds are non-zero.
func formatTimeOfDay(t time.Time) string {
	s := t.Format("15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s
}

func toDecimal(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		return n, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case float64:
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	}
	return nil, fmt.Errorf("unexpected numeric type %T", v)
}
