package rdbms

import (
	"context"
	"fmt"
	"strings"

	"github.com/fscifa/totepipe/logger"
	"github.com/fscifa/totepipe/tabular"
	"github.com/lib/pq"
)

type SqlResultHandler interface {
	HandleHeader(i []interface{}) error
	HandleRow(i []interface{}) error
}

// SqlQuery runs sqltext and sends the column names then each row to i.
func SqlQuery(ctx context.Context, log logger.Logger, db Connector, sqltext string, i SqlResultHandler) error {
	rows, err := db.QueryContext(ctx, sqltext)
	if err != nil {
		return fmt.Errorf("error during database query using SQL: '%v': %w", sqltext, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("error fetching columns: %w", err)
	}
	log.Debug("fetched columns: ", cols)
	// Scan the values dynamically.
	lenCols := len(cols)
	scanPtrs := make([]interface{}, lenCols)
	scanVals := make([]interface{}, lenCols)
	for idx := 0; idx < lenCols; idx++ { // for each column...
		scanPtrs[idx] = &scanVals[idx]
	}
	// Build and send the header.
	header := make([]interface{}, lenCols)
	for idx := range cols {
		header[idx] = cols[idx]
	}
	if err = i.HandleHeader(header); err != nil {
		return err
	}
	// Send the rows via callback interface.
	for rows.Next() {
		if err := ctx.Err(); err != nil { // quit if asked to.
			return err
		}
		if err := rows.Scan(scanPtrs...); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		row := make([]interface{}, lenCols)
		for idx := range scanVals { // for each value...
			row[idx] = normaliseValue(scanVals[idx])
		}
		if err = i.HandleRow(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// normaliseValue converts driver byte slices (text and numeric columns) to strings.
func normaliseValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// datasetHandler collects query results into a Dataset.
type datasetHandler struct {
	d *tabular.Dataset
}

func (h *datasetHandler) HandleHeader(i []interface{}) error {
	cols := make([]string, len(i))
	for idx, c := range i {
		cols[idx] = fmt.Sprint(c)
	}
	h.d = tabular.New(cols...)
	return nil
}

func (h *datasetHandler) HandleRow(i []interface{}) error {
	return h.d.Append(i...)
}

// TableQuery returns the SQL used by QueryTable. since is a watermark timestamp
// and an empty since selects every row.
func TableQuery(table, since string) string {
	sqltext := "SELECT * FROM " + pq.QuoteIdentifier(table)
	if since != "" {
		sqltext += " WHERE last_updated > " + QuoteLiteral(strings.Replace(since, "T", " ", 1))
	}
	return sqltext + ";"
}

// QueryTable reads table, or only rows updated after since, into a Dataset.
func QueryTable(ctx context.Context, log logger.Logger, db Connector, table, since string) (*tabular.Dataset, error) {
	h := &datasetHandler{}
	sqltext := TableQuery(table, since)
	log.Debug("querying table ", table, " with SQL: ", sqltext)
	if err := SqlQuery(ctx, log, db, sqltext, h); err != nil {
		return nil, &QueryError{Table: table, Err: err}
	}
	return h.d, nil
}
