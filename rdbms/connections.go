package rdbms

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/logger"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/xo/dburl"
)

var ErrQuery = errors.New("query failure")

// QueryError matches ErrQuery and names the table being read or written.
type QueryError struct {
	Table string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v on table %q: %v", ErrQuery, e.Table, e.Err)
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Rows is the subset of *sql.Rows used to read query results.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// Connector abstracts the database access used by the pipeline.
type Connector interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Close() error
	GetType() string
}

// Connection wraps a Go native sql.DB.
type Connection struct {
	DbSql  *sql.DB
	DbType string
}

func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	r, err := c.DbSql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Connection) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.DbSql.ExecContext(ctx, query, args...)
}

func (c *Connection) Close() error {
	return c.DbSql.Close()
}

func (c *Connection) GetType() string {
	return c.DbType
}

// DsnConnectionDetails is a simple struct to hold a DSN only.
type DsnConnectionDetails struct {
	Dsn string `errorTxt:"data source name i.e. connect string" mandatory:"yes"`
}

// String returns the DSN with redacted password.
func (d DsnConnectionDetails) String() string {
	if scheme, err := d.GetScheme(); err == nil && scheme == constants.ConnectionTypeSnowflake {
		if c, err := SnowflakeParseDSN(d.Dsn); err == nil {
			return "snowflake://" + c.String()
		}
	}
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return "<unparseable DSN>"
	}
	return u.Redacted()
}

// GetScheme returns the connection type named by the DSN, e.g. postgres or snowflake.
func (d DsnConnectionDetails) GetScheme() (string, error) {
	if d.Dsn == "" {
		return "", errors.New("DSN not found")
	}
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return "", errors.Wrap(err, "DSN could not be parsed")
	}
	return u.Driver, nil
}

// Parse validates the DSN.
func (d DsnConnectionDetails) Parse() error {
	scheme, err := d.GetScheme()
	if err != nil {
		return err
	}
	switch scheme {
	case constants.ConnectionTypePostgres:
		return nil
	case constants.ConnectionTypeSnowflake:
		_, err := SnowflakeParseDSN(d.Dsn)
		return err
	}
	return fmt.Errorf("unsupported database type, %q", scheme)
}

// OpenDbConnection opens and pings the database named by the DSN in d.
func OpenDbConnection(log logger.Logger, d DsnConnectionDetails) (Connector, error) {
	scheme, err := d.GetScheme()
	if err != nil {
		return nil, err
	}
	log.Debug("opening connection type ", scheme)
	switch scheme {
	case constants.ConnectionTypePostgres:
		return newConnectionWithDsn(log, d)
	case constants.ConnectionTypeSnowflake:
		return newSnowflakeConnection(log, d)
	}
	return nil, fmt.Errorf("unsupported database type, %q", scheme)
}

func newConnectionWithDsn(log logger.Logger, d DsnConnectionDetails) (Connector, error) {
	log.Info("Opening database connection: ", d)
	u, err := dburl.Parse(d.Dsn)
	if err != nil { // if the DSN could not be parsed...
		return nil, errors.Wrapf(err, "error parsing DSN %q", d)
	}
	conn := &Connection{DbType: u.Driver}
	conn.DbSql, err = sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}
	// Test the connection.
	if err = conn.DbSql.Ping(); err != nil {
		_ = conn.DbSql.Close()
		return nil, errors.Wrapf(err, "error connecting to %v", d)
	}
	log.Info("Successful connection to: ", d)
	return conn, nil
}
