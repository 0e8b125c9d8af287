package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/fscifa/totepipe/aws/s3"
	"github.com/fscifa/totepipe/columnar"
	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/helper"
	"github.com/fscifa/totepipe/rdbms"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// Names of the settings as used in the config file, flags and TP_ environment variables.
const (
	KeyLogLevel        = "log-level"
	KeyStackDump       = "stack-dump"
	KeyRegion          = "region"
	KeyRawBucket       = "raw-bucket"
	KeyProcessedBucket = "processed-bucket"
	KeySourceDsn       = "source-dsn"
	KeyWarehouseDsn    = "warehouse-dsn"
	KeyCompression     = "compression"
	KeyTables          = "tables"
	KeyFilters         = "filters"
	KeyPort            = "port"
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

// Config holds every setting of the pipeline.
type Config struct {
	LogLevel        string                     `json:"log-level"`
	StackDump       bool                       `json:"stack-dump"`
	Region          string                     `json:"region" errorTxt:"AWS region" mandatory:"yes"`
	RawBucket       string                     `json:"raw-bucket" errorTxt:"raw data bucket" mandatory:"yes"`
	ProcessedBucket string                     `json:"processed-bucket" errorTxt:"processed data bucket" mandatory:"yes"`
	SourceDsn       string                     `json:"source-dsn"`
	WarehouseDsn    string                     `json:"warehouse-dsn"`
	Compression     string                     `json:"compression"`
	Tables          []string                   `json:"tables"`
	Filters         map[string]json.RawMessage `json:"filters,omitempty"`
	Port            int                        `json:"port"`
}

// Default returns the built-in settings.
func Default() *Config {
	tables := make([]string, len(constants.ExtractTables))
	copy(tables, constants.ExtractTables)
	return &Config{
		LogLevel:        constants.DefaultLogLevel,
		Region:          constants.DefaultRegion,
		RawBucket:       constants.DefaultRawBucket,
		ProcessedBucket: constants.DefaultProcessedBucket,
		Compression:     constants.DefaultCompression,
		Tables:          tables,
		Port:            constants.DefaultServerPort,
	}
}

// Load returns the defaults overlaid with the YAML file at path, if it exists, and then
// the TP_ environment variables. An empty path means the default file in the home directory.
func Load(path string) (*Config, error) {
	c := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFilePath()
	}
	if err := c.MergeFile(path); err != nil {
		var nf FileNotFoundError
		if !errors.As(err, &nf) || explicit { // a missing default file is fine.
			return nil, err
		}
	}
	if err := c.MergeEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

// MergeFile overlays the settings found in the YAML file at path.
func (c *Config) MergeFile(path string) error {
	b, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return FileNotFoundError{name: path}
	}
	if err != nil {
		return errors.Wrapf(err, "error reading config file %v", path)
	}
	return c.MergeYAML(b)
}

// MergeYAML overlays the settings found in b. Keys absent from b keep their values.
func (c *Config) MergeYAML(b []byte) error {
	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.Wrap(err, "error parsing config")
	}
	return nil
}

// MergeEnv overlays the settings found in TP_ environment variables.
func (c *Config) MergeEnv() error {
	strs := map[string]*string{
		KeyLogLevel:        &c.LogLevel,
		KeyRegion:          &c.Region,
		KeyRawBucket:       &c.RawBucket,
		KeyProcessedBucket: &c.ProcessedBucket,
		KeySourceDsn:       &c.SourceDsn,
		KeyWarehouseDsn:    &c.WarehouseDsn,
		KeyCompression:     &c.Compression,
	}
	for key, ptr := range strs {
		_ = helper.ReadValueFromEnv(helper.GetEnvVarName(key), ptr)
	}
	if v := os.Getenv(helper.GetEnvVarName(KeyTables)); v != "" {
		c.Tables = helper.CsvToStringSliceTrimSpaces(v)
	}
	if v := os.Getenv(helper.GetEnvVarName(KeyStackDump)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "bad value for %v", helper.GetEnvVarName(KeyStackDump))
		}
		c.StackDump = b
	}
	if v := os.Getenv(helper.GetEnvVarName(KeyPort)); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "bad value for %v", helper.GetEnvVarName(KeyPort))
		}
		c.Port = p
	}
	if v := os.Getenv(helper.GetEnvVarName(KeyFilters)); v != "" {
		filters := make(map[string]json.RawMessage)
		if err := yaml.Unmarshal([]byte(v), &filters); err != nil {
			return errors.Wrapf(err, "bad value for %v", helper.GetEnvVarName(KeyFilters))
		}
		c.Filters = filters
	}
	return nil
}

// Validate checks the settings every stage needs.
func (c *Config) Validate() error {
	if err := helper.ValidateStructIsPopulated(c); err != nil {
		return err
	}
	if _, err := columnar.ParseCodec(c.Compression); err != nil {
		return err
	}
	_, _, err := c.Buckets()
	return err
}

// Buckets parses the raw and processed bucket settings, each of the form
// [s3://]<bucket>[/<prefix>].
func (c *Config) Buckets() (raw, processed s3.AwsS3Bucket, err error) {
	if raw, err = s3.ParseDSN(c.RawBucket, c.Region); err != nil {
		return raw, processed, errors.Wrap(err, KeyRawBucket)
	}
	if processed, err = s3.ParseDSN(c.ProcessedBucket, c.Region); err != nil {
		return raw, processed, errors.Wrap(err, KeyProcessedBucket)
	}
	return raw, processed, nil
}

// ValidateSource checks the source database settings used by the extract stage.
func (c *Config) ValidateSource() error {
	if strings.TrimSpace(c.SourceDsn) == "" {
		return fmt.Errorf("please supply a value for %v", KeySourceDsn)
	}
	return errors.Wrap(rdbms.DsnConnectionDetails{Dsn: c.SourceDsn}.Parse(), KeySourceDsn)
}

// ValidateWarehouse checks the warehouse settings used by the load stage.
func (c *Config) ValidateWarehouse() error {
	if strings.TrimSpace(c.WarehouseDsn) == "" {
		return fmt.Errorf("please supply a value for %v", KeyWarehouseDsn)
	}
	return errors.Wrap(rdbms.DsnConnectionDetails{Dsn: c.WarehouseDsn}.Parse(), KeyWarehouseDsn)
}

// Redacted returns the settings as YAML with passwords removed from the DSNs.
func (c *Config) Redacted() ([]byte, error) {
	out := *c
	if out.SourceDsn != "" {
		out.SourceDsn = rdbms.DsnConnectionDetails{Dsn: out.SourceDsn}.String()
	}
	if out.WarehouseDsn != "" {
		out.WarehouseDsn = rdbms.DsnConnectionDetails{Dsn: out.WarehouseDsn}.String()
	}
	return yaml.Marshal(out)
}
