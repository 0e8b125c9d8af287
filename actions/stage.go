package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fscifa/totepipe/aws/s3"
	"github.com/fscifa/totepipe/config"
	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/logger"
	"github.com/fscifa/totepipe/rdbms"
	"github.com/fscifa/totepipe/zone"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rs/xid"
)

var ErrUnknownStage = errors.New("unknown stage")

// Env holds everything a stage needs. Buckets and connections left nil are
// created from Config on first use.
type Env struct {
	Config    *config.Config
	Log       logger.Logger
	Raw       s3.BasicClient
	Processed s3.BasicClient
	Source    rdbms.Connector
	Warehouse rdbms.Connector
	OpenDb    DbOpener
	Clock     func() time.Time
}

// NewEnv returns an Env bound to the buckets named in cfg.
// A bucket setting may carry a key prefix, e.g. s3://bucket/prefix.
func NewEnv(cfg *config.Config, log logger.Logger) (*Env, error) {
	raw, processed, err := cfg.Buckets()
	if err != nil {
		return nil, err
	}
	log.Debug("using raw bucket ", raw, " and processed bucket ", processed)
	return &Env{
		Config:    cfg,
		Log:       log,
		Raw:       raw.NewClient(),
		Processed: processed.NewClient(),
		OpenDb:    rdbms.OpenDbConnection,
		Clock:     time.Now,
	}, nil
}

func (e *Env) now() time.Time {
	if e.Clock == nil {
		return time.Now().UTC()
	}
	return e.Clock().UTC()
}

func (e *Env) source() (rdbms.Connector, error) {
	if e.Source != nil {
		return e.Source, nil
	}
	if err := e.Config.ValidateSource(); err != nil {
		return nil, err
	}
	c, err := e.OpenDb(e.Log, rdbms.DsnConnectionDetails{Dsn: e.Config.SourceDsn})
	if err != nil {
		return nil, errors.Wrap(err, "error opening source database")
	}
	e.Source = c
	return c, nil
}

func (e *Env) warehouse() (rdbms.Connector, error) {
	if e.Warehouse != nil {
		return e.Warehouse, nil
	}
	if err := e.Config.ValidateWarehouse(); err != nil {
		return nil, err
	}
	c, err := e.OpenDb(e.Log, rdbms.DsnConnectionDetails{Dsn: e.Config.WarehouseDsn})
	if err != nil {
		return nil, errors.Wrap(err, "error opening warehouse database")
	}
	e.Warehouse = c
	return c, nil
}

// Close releases any open database connections.
func (e *Env) Close() {
	for _, c := range []rdbms.Connector{e.Source, e.Warehouse} {
		if c != nil {
			if err := c.Close(); err != nil {
				e.Log.Warn("error closing database connection: ", err)
			}
		}
	}
	e.Source, e.Warehouse = nil, nil
}

// StageResult describes what a stage run did to each table.
type StageResult struct {
	Stage     string            `json:"stage"`
	RunID     string            `json:"runId"`
	Timestamp string            `json:"timestamp,omitempty"`
	Written   []string          `json:"written"`
	Skipped   []string          `json:"skipped"`
	Failed    map[string]string `json:"failed,omitempty"`
	failures  map[string]error
}

func newStageResult(stage string) *StageResult {
	return &StageResult{
		Stage:    stage,
		RunID:    xid.New().String(),
		Written:  make([]string, 0),
		Skipped:  make([]string, 0),
		failures: make(map[string]error),
	}
}

func (r *StageResult) write(name string) {
	r.Written = append(r.Written, name)
}

func (r *StageResult) skip(table string) {
	r.Skipped = append(r.Skipped, table)
}

func (r *StageResult) fail(table string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[table] = err.Error()
	r.failures[table] = err
}

// Err returns nil when no table failed.
func (r *StageResult) Err() error {
	if len(r.failures) == 0 {
		return nil
	}
	return &StageError{Stage: r.Stage, Failures: r.failures}
}

// StageError combines the per-table failures of one stage run.
type StageError struct {
	Stage    string
	Failures map[string]error
}

func (e *StageError) tables() []string {
	t := make([]string, 0, len(e.Failures))
	for k := range e.Failures {
		t = append(t, k)
	}
	sort.Strings(t)
	return t
}

func (e *StageError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, t := range e.tables() {
		msgs = append(msgs, fmt.Sprintf("%v: %v", t, e.Failures[t]))
	}
	return fmt.Sprintf("stage %v failed for %v table(s): %v", e.Stage, len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes every table failure to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, t := range e.tables() {
		out = append(out, e.Failures[t])
	}
	return out
}

// StageRequest is the payload of a trigger: a Lambda event, an HTTP body or TP_STAGE.
type StageRequest struct {
	Stage  string   `mapstructure:"stage"`
	Tables []string `mapstructure:"tables"`
}

// DecodeStageRequest reads a StageRequest from a generic payload.
func DecodeStageRequest(payload map[string]interface{}) (StageRequest, error) {
	var req StageRequest
	if err := mapstructure.Decode(payload, &req); err != nil {
		return req, errors.Wrap(err, "error decoding stage request")
	}
	req.Stage = strings.ToLower(strings.TrimSpace(req.Stage))
	return req, nil
}

// RunStage runs the stage named in req. The run stage chains extract, transform
// and load and stops at the first stage that fails. env must not be shared with
// a concurrent RunStage.
func RunStage(ctx context.Context, env *Env, req StageRequest) ([]*StageResult, error) {
	if len(req.Tables) > 0 {
		saved := env.Config
		cfg := *saved
		cfg.Tables = req.Tables
		env.Config = &cfg
		defer func() { env.Config = saved }()
	}
	runners := map[string]func(context.Context, *Env) (*StageResult, error){
		constants.StageExtract:   RunExtract,
		constants.StageTransform: RunTransform,
		constants.StageLoad:      RunLoad,
	}
	var stages []string
	switch req.Stage {
	case constants.StageRun:
		stages = []string{constants.StageExtract, constants.StageTransform, constants.StageLoad}
	case constants.StageExtract, constants.StageTransform, constants.StageLoad:
		stages = []string{req.Stage}
	default:
		return nil, errors.Wrapf(ErrUnknownStage, "%q", req.Stage)
	}
	results := make([]*StageResult, 0, len(stages))
	for _, s := range stages {
		res, err := runners[s](ctx, env)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func storageError(bucket ObjectPutter, key, op string, err error) error {
	if errors.Is(err, zone.ErrStorage) {
		return err
	}
	return &zone.StorageError{Bucket: bucket.Bucket(), Key: key, Op: op, Err: err}
}

func stageLogger(env *Env, res *StageResult) logger.Logger {
	return env.Log.WithField("run", res.RunID).WithField("stage", res.Stage)
}
