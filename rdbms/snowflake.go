package rdbms

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/logger"
	sf "github.com/snowflakedb/gosnowflake"
)

var rexpSnowflakePrefix = regexp.MustCompile("^snowflake://")

type SnowflakeConnectionDetails struct {
	Account   string `errorTxt:"Snowflake account" mandatory:"yes"`
	DBName    string `errorTxt:"Snowflake db name" mandatory:"yes"`
	Schema    string `errorTxt:"Snowflake schema" mandatory:"yes"`
	User      string `errorTxt:"Snowflake username" mandatory:"yes"`
	Password  string `errorTxt:"Snowflake password" mandatory:"yes"`
	Warehouse string `errorTxt:"Snowflake warehouse"`
	RoleName  string `errorTxt:"Snowflake role name"`
}

func (d SnowflakeConnectionDetails) String() string {
	return fmt.Sprintf("%v:%v@%v/%v?schema=%v&warehouse=%v&role=%v",
		d.User,
		"xxxxxxx",
		d.Account,
		d.DBName,
		d.Schema,
		d.Warehouse,
		d.RoleName,
	)
}

// newSnowflakeConnection opens the Snowflake warehouse named in d.
func newSnowflakeConnection(log logger.Logger, d DsnConnectionDetails) (Connector, error) {
	dsn := rexpSnowflakePrefix.ReplaceAllString(d.Dsn, "")
	conn := &Connection{DbType: constants.ConnectionTypeSnowflake}
	var err error
	conn.DbSql, err = sql.Open("snowflake", dsn)
	if err != nil {
		return nil, err
	}
	if err = conn.DbSql.Ping(); err != nil {
		_ = conn.DbSql.Close()
		return nil, fmt.Errorf("error connecting to %v: %w", d, err)
	}
	log.Info("Successful database connection to Snowflake.")
	return conn, nil
}

// SnowflakeParseDSN converts a Snowflake DSN into native connection details.
// The DSN must start with 'snowflake://'.
func SnowflakeParseDSN(d string) (*SnowflakeConnectionDetails, error) {
	if !rexpSnowflakePrefix.MatchString(d) {
		return nil, errors.New("unsupported Snowflake DSN format")
	}
	cfg, err := sf.ParseDSN(strings.TrimPrefix(d, "snowflake://"))
	if err != nil {
		return nil, err
	}
	retval := &SnowflakeConnectionDetails{
		User:      cfg.User,
		Password:  cfg.Password,
		Schema:    cfg.Schema,
		DBName:    cfg.Database,
		Account:   cfg.Account,
		RoleName:  cfg.Role,
		Warehouse: cfg.Warehouse,
	}
	if cfg.Region != "" { // if region exists in the parsed config...
		retval.Account = fmt.Sprintf("%v.%v", retval.Account, cfg.Region)
	}
	return retval, nil
}
