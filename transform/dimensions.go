package transform

import (
	"strings"

	om "github.com/cevaris/ordered_map"
	"github.com/fscifa/totepipe/currency"
	"github.com/fscifa/totepipe/helper"
	"github.com/fscifa/totepipe/tabular"
	"github.com/pkg/errors"
)

const counterpartyPrefix = "counterparty_legal_"

var auditColumns = []string{"created_at", "last_updated"}

// StaffColumns is the fixed column order of dim_staff.
var StaffColumns = []string{"staff_id", "first_name", "last_name", "department_name", "location", "email_address"}

// Location builds dim_location from an address snapshot.
func Location(address *tabular.Dataset) (*tabular.Dataset, error) {
	d, err := address.Drop(auditColumns...)
	if err != nil {
		return nil, err
	}
	return d.Rename(helper.TokensToOrderedMap("address_id:location_id"))
}

// Counterparty builds dim_counterparty from a counterparty snapshot and dim_location.
// Every counterparty row survives the join. Address columns are prefixed with
// counterparty_legal_ apart from phone which becomes counterparty_legal_phone_number.
func Counterparty(counterparty, location *tabular.Dataset) (*tabular.Dataset, error) {
	if location == nil {
		return nil, errors.New("counterparty needs a location dimension")
	}
	d, err := counterparty.Drop(append(auditColumns, "delivery_contact", "commercial_contact")...)
	if err != nil {
		return nil, err
	}
	if d, err = d.LeftJoin(location, "legal_address_id", "location_id"); err != nil {
		return nil, err
	}
	if d, err = d.Drop("location_id", "legal_address_id"); err != nil {
		return nil, err
	}
	// phone first so the generic pass never sees it.
	renames := om.NewOrderedMap()
	if d.HasColumn("phone") {
		renames.Set("phone", counterpartyPrefix+"phone_number")
	}
	for _, c := range d.Columns() {
		switch c {
		case "counterparty_id", "counterparty_legal_name", "phone":
			continue
		}
		renames.Set(c, counterpartyPrefix+c)
	}
	return d.Rename(renames)
}

// Currency builds dim_currency and adds currency_name for each currency_code.
func Currency(cur *tabular.Dataset) (*tabular.Dataset, error) {
	d, err := cur.Drop(auditColumns...)
	if err != nil {
		return nil, err
	}
	if err := d.Require("currency_code"); err != nil {
		return nil, err
	}
	return d.WithColumn("currency_name", func(r tabular.Row) (interface{}, error) {
		return currency.NameForCode(strings.TrimSpace(helper.GetStringFromInterface(r.Get("currency_code"))))
	})
}

// Departments concatenates every department snapshot, oldest first, and removes
// duplicate rows. The result only feeds Staff.
func Departments(snapshots ...*tabular.Dataset) (*tabular.Dataset, error) {
	all, err := tabular.Concat(snapshots...)
	if err != nil {
		return nil, err
	}
	d, err := all.Drop(append(auditColumns, "manager")...)
	if err != nil {
		return nil, err
	}
	return d.Distinct(), nil
}

// Staff builds dim_staff from a staff snapshot and the departments.
// Every staff row survives the join.
func Staff(staff, departments *tabular.Dataset) (*tabular.Dataset, error) {
	if departments == nil {
		return nil, errors.New("staff needs department data")
	}
	d, err := staff.Drop(auditColumns...)
	if err != nil {
		return nil, err
	}
	if d, err = d.LeftJoin(departments, "department_id", "department_id"); err != nil {
		return nil, err
	}
	if d, err = d.Drop("department_id"); err != nil {
		return nil, err
	}
	return d.Select(StaffColumns...)
}

// Design builds dim_design.
func Design(design *tabular.Dataset) (*tabular.Dataset, error) {
	return design.Drop(auditColumns...)
}
