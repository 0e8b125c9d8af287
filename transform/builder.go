// Package transform turns raw operational snapshots into the star schema:
// dimension tables, fact_sales_order and dim_date.
//
// The functions Location, Counterparty, Currency, Departments, Staff, Design,
// FactSalesOrder and DimDate are pure. Builder resolves their inputs through a
// SnapshotSource and reports tables without new data as absent.
package transform

import (
	"context"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/logger"
	"github.com/fscifa/totepipe/tabular"
	"github.com/fscifa/totepipe/zone"
	"github.com/pkg/errors"
)

// SnapshotSource resolves raw snapshots of a table.
type SnapshotSource interface {
	// Latest returns the snapshot belonging to the current watermark or an error
	// matching zone.ErrNoNewData.
	Latest(table string) (*tabular.Dataset, error)
	// Newest returns the newest snapshot regardless of the watermark.
	Newest(table string) (*tabular.Dataset, error)
	// All returns every snapshot, oldest first.
	All(table string) ([]*tabular.Dataset, error)
}

// Outputs lists the tables produced by BuildAll in build order.
var Outputs = []string{
	constants.TableDimLocation,
	constants.TableDimCounterparty,
	constants.TableDimCurrency,
	constants.TableDimStaff,
	constants.TableDimDesign,
	constants.TableFactSalesOrder,
	constants.TableDimDate,
}

type Builder struct {
	source  SnapshotSource
	filters Filters
	log     logger.Logger
}

// NewBuilder returns a Builder reading from source. filters may be nil.
func NewBuilder(log logger.Logger, source SnapshotSource, filters Filters) *Builder {
	return &Builder{source: source, filters: filters, log: log}
}

// latest returns nil without error when table has no new data.
func (b *Builder) latest(table string) (*tabular.Dataset, error) {
	d, err := b.source.Latest(table)
	if errors.Is(err, zone.ErrNoNewData) {
		b.log.Info(err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b.filters.Apply(table, d)
}

func (b *Builder) newest(table string) (*tabular.Dataset, error) {
	d, err := b.source.Newest(table)
	if err != nil {
		return nil, err
	}
	return b.filters.Apply(table, d)
}

// malformed marks errors from the pure transformers as bad input for table.
func malformed(table string, err error) error {
	if err == nil || errors.Is(err, zone.ErrMalformedInput) {
		return err
	}
	if errors.Is(err, tabular.ErrColumnNotFound) || errors.Is(err, tabular.ErrColumnExists) {
		return zone.Malformed(err, "table %q", table)
	}
	return errors.Wrapf(err, "table %q", table)
}

func (b *Builder) BuildLocation() (*tabular.Dataset, error) {
	address, err := b.latest(constants.TableAddress)
	if err != nil || address == nil {
		return nil, err
	}
	d, err := Location(address)
	return d, malformed(constants.TableDimLocation, err)
}

// BuildCounterparty joins against the location built from the newest address
// snapshot so a counterparty change without an address change still joins.
func (b *Builder) BuildCounterparty() (*tabular.Dataset, error) {
	cp, err := b.latest(constants.TableCounterparty)
	if err != nil || cp == nil {
		return nil, err
	}
	address, err := b.newest(constants.TableAddress)
	if err != nil {
		return nil, err
	}
	location, err := Location(address)
	if err != nil {
		return nil, malformed(constants.TableDimLocation, err)
	}
	d, err := Counterparty(cp, location)
	return d, malformed(constants.TableDimCounterparty, err)
}

func (b *Builder) BuildCurrency() (*tabular.Dataset, error) {
	cur, err := b.latest(constants.TableCurrency)
	if err != nil || cur == nil {
		return nil, err
	}
	d, err := Currency(cur)
	return d, malformed(constants.TableDimCurrency, err)
}

// BuildStaff joins staff against every department snapshot.
func (b *Builder) BuildStaff() (*tabular.Dataset, error) {
	staff, err := b.latest(constants.TableStaff)
	if err != nil || staff == nil {
		return nil, err
	}
	snapshots, err := b.source.All(constants.TableDepartment)
	if err != nil {
		return nil, err
	}
	for i, s := range snapshots {
		if snapshots[i], err = b.filters.Apply(constants.TableDepartment, s); err != nil {
			return nil, err
		}
	}
	departments, err := Departments(snapshots...)
	if err != nil {
		return nil, malformed(constants.TableDepartment, err)
	}
	d, err := Staff(staff, departments)
	return d, malformed(constants.TableDimStaff, err)
}

func (b *Builder) BuildDesign() (*tabular.Dataset, error) {
	design, err := b.latest(constants.TableDesign)
	if err != nil || design == nil {
		return nil, err
	}
	d, err := Design(design)
	return d, malformed(constants.TableDimDesign, err)
}

// BuildFactSalesOrder fails on an empty snapshot and returns nil when there is no new data.
func (b *Builder) BuildFactSalesOrder() (*tabular.Dataset, error) {
	sales, err := b.latest(constants.TableSalesOrder)
	if err != nil || sales == nil {
		return nil, err
	}
	d, err := FactSalesOrder(sales)
	return d, malformed(constants.TableFactSalesOrder, err)
}

// BuildDimDate must only be given a fact table produced by BuildFactSalesOrder.
func (b *Builder) BuildDimDate(fact *tabular.Dataset) (*tabular.Dataset, error) {
	d, err := DimDate(fact)
	return d, malformed(constants.TableDimDate, err)
}

// Output is the outcome of building one table. Data is nil and Err is nil when
// the table was skipped.
type Output struct {
	Table string
	Data  *tabular.Dataset
	Err   error
}

func (o Output) Skipped() bool {
	return o.Data == nil && o.Err == nil
}

// BuildAll builds every table in Outputs order. A failing table does not stop the
// others. dim_date is skipped when fact_sales_order is absent or failed.
// Cancelling ctx stops the run before the next table and returns ctx.Err().
func (b *Builder) BuildAll(ctx context.Context) ([]Output, error) {
	builders := map[string]func() (*tabular.Dataset, error){
		constants.TableDimLocation:     b.BuildLocation,
		constants.TableDimCounterparty: b.BuildCounterparty,
		constants.TableDimCurrency:     b.BuildCurrency,
		constants.TableDimStaff:        b.BuildStaff,
		constants.TableDimDesign:       b.BuildDesign,
		constants.TableFactSalesOrder:  b.BuildFactSalesOrder,
	}
	out := make([]Output, 0, len(Outputs))
	var fact *tabular.Dataset
	for _, table := range Outputs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		o := Output{Table: table}
		if table == constants.TableDimDate {
			if fact != nil {
				o.Data, o.Err = b.BuildDimDate(fact)
			}
		} else {
			o.Data, o.Err = builders[table]()
		}
		if o.Err != nil {
			o.Data = nil
			b.log.Error("error building table ", table, ": ", o.Err)
		} else if o.Data == nil {
			b.log.Info("skipped table ", table)
		} else {
			b.log.Debug("built table ", table, " with ", o.Data.Len(), " rows")
		}
		if table == constants.TableFactSalesOrder {
			fact = o.Data
		}
		out = append(out, o)
	}
	return out, nil
}
