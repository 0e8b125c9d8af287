package rdbms

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/helper"
	"github.com/fscifa/totepipe/logger"
	"github.com/fscifa/totepipe/tabular"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var rexpIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var ErrBadIdentifier = errors.New("bad SQL identifier")

// QuoteLiteral wraps s in single quotes, doubling any embedded single quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.Replace(s, "'", "''", -1) + "'"
}

// SqlLiteral renders v as a SQL literal. Numbers are unquoted and nil is NULL.
func SqlLiteral(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64, float32, float64:
		return helper.GetStringFromInterface(x), nil
	case decimal.Decimal:
		return x.String(), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return QuoteLiteral(x), nil
	case []byte:
		return QuoteLiteral(string(x)), nil
	case time.Time:
		return QuoteLiteral(x.Format(constants.TimeFormatSqlTimestamp)), nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}

// InsertStatement builds one multi-row INSERT for every row of d.
func InsertStatement(table string, d *tabular.Dataset) (string, error) {
	if !rexpIdentifier.MatchString(table) {
		return "", errors.Wrapf(ErrBadIdentifier, "table %q", table)
	}
	cols := d.Columns()
	for _, c := range cols {
		if !rexpIdentifier.MatchString(c) {
			return "", errors.Wrapf(ErrBadIdentifier, "column %q", c)
		}
	}
	// Populate the SQL template.
	sqlStmt := `insert into <TABLE> (<TGT-COLS>) values <VALUES>;`
	sqlStmt = strings.Replace(sqlStmt, "<TABLE>", table, 1)
	sqlStmt = strings.Replace(sqlStmt, "<TGT-COLS>", strings.Join(cols, ", "), 1)
	allRows := strings.Builder{}
	for i := 0; i < d.Len(); i++ { // for each row...
		row := strings.Builder{}
		for _, v := range d.Row(i).Values() {
			lit, err := SqlLiteral(v)
			if err != nil {
				return "", errors.Wrapf(err, "row %v", i)
			}
			row.WriteString(", ")
			row.WriteString(lit)
		}
		// Save the row as ', (v1, v2, vn)' and trim the leading comma later.
		allRows.WriteString(fmt.Sprintf(", (%v)", strings.TrimPrefix(row.String(), ", ")))
	}
	return strings.Replace(sqlStmt, "<VALUES>", strings.TrimPrefix(allRows.String(), ", "), 1), nil
}

// BulkInsert inserts every row of d into table with a single statement.
// An empty dataset executes nothing.
func BulkInsert(ctx context.Context, log logger.Logger, db Connector, table string, d *tabular.Dataset) (int64, error) {
	if d.Len() == 0 {
		log.Info("nothing to insert into ", table)
		return 0, nil
	}
	sqlStmt, err := InsertStatement(table, d)
	if err != nil {
		return 0, &QueryError{Table: table, Err: err}
	}
	log.Debug("inserting ", d.Len(), " rows into ", table)
	res, err := db.ExecContext(ctx, sqlStmt)
	if err != nil {
		return 0, &QueryError{Table: table, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil { // some drivers do not report rows affected.
		n = int64(d.Len())
	}
	log.Info("inserted ", n, " rows into ", table)
	return n, nil
}
