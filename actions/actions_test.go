package actions

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fscifa/totepipe/aws/s3"
	"github.com/fscifa/totepipe/config"
	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/logger"
	"github.com/fscifa/totepipe/rdbms"
	"github.com/fscifa/totepipe/zone"
	"github.com/onsi/gomega"
)

var (
	ts1 = time.Date(2022, 11, 3, 14, 20, 49, 962000000, time.UTC)
	ts2 = time.Date(2022, 11, 4, 9, 0, 0, 0, time.UTC)
)

type sourceTable struct {
	cols []string
	rows [][]interface{}
}

type fakeRows struct {
	t   sourceTable
	pos int
}

func (r *fakeRows) Columns() ([]string, error) { return r.t.cols, nil }
func (r *fakeRows) Next() bool                 { r.pos++; return r.pos <= len(r.t.rows) }
func (r *fakeRows) Err() error                 { return nil }
func (r *fakeRows) Close() error               { return nil }

func (r *fakeRows) Scan(dest ...interface{}) error {
	for i, v := range r.t.rows[r.pos-1] {
		*(dest[i].(*interface{})) = v
	}
	return nil
}

type fakeResult int64

func (f fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (f fakeResult) RowsAffected() (int64, error) { return int64(f), nil }

// fakeDb serves tables by name from QueryContext and records every statement.
type fakeDb struct {
	mu      sync.Mutex
	tables  map[string]sourceTable
	failing map[string]error
	queries []string
	execs   []string
	closed  bool
}

func (db *fakeDb) QueryContext(ctx context.Context, query string, args ...interface{}) (rdbms.Rows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.queries = append(db.queries, query)
	for name, err := range db.failing {
		if strings.Contains(query, `"`+name+`"`) {
			return nil, err
		}
	}
	for name, t := range db.tables {
		if strings.Contains(query, `"`+name+`"`) {
			return &fakeRows{t: t}, nil
		}
	}
	return &fakeRows{t: sourceTable{cols: []string{"id"}}}, nil
}

func (db *fakeDb) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.execs = append(db.execs, query)
	return fakeResult(strings.Count(query, "), (") + 1), nil
}

func (db *fakeDb) Close() error    { db.closed = true; return nil }
func (db *fakeDb) GetType() string { return constants.ConnectionTypePostgres }

func sourceTables() map[string]sourceTable {
	audit := []interface{}{ts1, ts1}
	row := func(vals ...interface{}) []interface{} { return append(vals, audit...) }
	return map[string]sourceTable{
		"address": {
			cols: []string{"address_id", "address_line_1", "address_line_2", "district", "city", "postal_code",
				"country", "phone", "created_at", "last_updated"},
			rows: [][]interface{}{row(int64(1), "2 High Street", nil, "Avon", "Bristol", "BS1 4ST", "UK", "07933457899")},
		},
		"counterparty": {
			cols: []string{"counterparty_id", "counterparty_legal_name", "legal_address_id", "commercial_contact",
				"delivery_contact", "created_at", "last_updated"},
			rows: [][]interface{}{row(int64(1), "Fahey and Sons", int64(1), "Micheal Toy", nil)},
		},
		"currency": {
			cols: []string{"currency_id", "currency_code", "created_at", "last_updated"},
			rows: [][]interface{}{row(int64(1), "GBP"), row(int64(2), "USD")},
		},
		"department": {
			cols: []string{"department_id", "department_name", "location", "manager", "created_at", "last_updated"},
			rows: [][]interface{}{row(int64(1), "Sales", "Manchester", "Richard Roma")},
		},
		"design": {
			cols: []string{"design_id", "design_name", "file_location", "file_name", "created_at", "last_updated"},
			rows: [][]interface{}{row(int64(8), "Wooden", "/usr", "wooden-20220717-npgz.json")},
		},
		"staff": {
			cols: []string{"staff_id", "first_name", "last_name", "department_id", "email_address",
				"created_at", "last_updated"},
			rows: [][]interface{}{row(int64(1), "Jeremie", "Franey", int64(1), "jeremie.franey@terrifictotes.com")},
		},
		"sales_order": {
			cols: []string{"sales_order_id", "created_at", "last_updated", "design_id", "staff_id", "counterparty_id",
				"units_sold", "unit_price", "currency_id", "agreed_delivery_date", "agreed_payment_date",
				"agreed_delivery_location_id"},
			rows: [][]interface{}{{
				int64(2),
				time.Date(1904, 5, 20, 11, 12, 12, 115290000, time.UTC),
				time.Date(1905, 6, 22, 9, 0, 0, 0, time.UTC),
				int64(8), int64(1), int64(1), int64(42972), "3.94", int64(1),
				"1910-05-21", "1914-05-29", int64(1),
			}},
		},
	}
}

func newTestEnv(source, warehouse *fakeDb, tables ...string) *Env {
	cfg := config.Default()
	if len(tables) > 0 {
		cfg.Tables = tables
	} else {
		cfg.Tables = []string{"address", "counterparty", "currency", "department", "design", "staff", "sales_order"}
	}
	env := &Env{
		Config:    cfg,
		Log:       logger.NewLogger("totepipe-test", "error", false),
		Raw:       s3.NewMemoryClient(cfg.RawBucket),
		Processed: s3.NewMemoryClient(cfg.ProcessedBucket),
		Clock:     func() time.Time { return ts1 },
	}
	// Only set non-nil connectors so the Env opens nothing itself.
	if source != nil {
		env.Source = source
	}
	if warehouse != nil {
		env.Warehouse = warehouse
	}
	return env
}

func TestRunExtractFullThenIncremental(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	src := &fakeDb{tables: sourceTables()}
	env := newTestEnv(src, nil, "address", "design")

	res, err := RunExtract(context.Background(), env)
	g.Expect(err).To(gomega.BeNil())
	g.Expect(res.Timestamp).To(gomega.Equal("2022-11-03T14:20:49.962000"))
	g.Expect(res.RunID).NotTo(gomega.BeEmpty())
	g.Expect(res.Written).To(gomega.Equal([]string{
		"address/address-2022-11-03T14:20:49.962000.json",
		"design/design-2022-11-03T14:20:49.962000.json",
	}))
	g.Expect(src.queries).To(gomega.Equal([]string{`SELECT * FROM "address";`, `SELECT * FROM "design";`}))
	wm, err := zone.NewWatermark(env.Raw).Read()
	g.Expect(err).To(gomega.BeNil())
	g.Expect(wm).To(gomega.Equal(res.Timestamp))

	b, err := env.Raw.Get("design/design-2022-11-03T14:20:49.962000.json")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(string(b)).To(gomega.HavePrefix(`{"design":[{"design_id":8,"design_name":"Wooden"`))
	g.Expect(string(b)).To(gomega.ContainSubstring(`"created_at":"2022-11-03 14:20:49.962000"`))

	// Nothing changed since the watermark.
	src.tables, src.queries = nil, nil
	env.Clock = func() time.Time { return ts2 }
	res, err = RunExtract(context.Background(), env)
	g.Expect(err).To(gomega.BeNil())
	g.Expect(res.Written).To(gomega.BeEmpty())
	g.Expect(res.Skipped).To(gomega.Equal([]string{"address", "design"}))
	g.Expect(src.queries[0]).To(gomega.Equal(
		`SELECT * FROM "address" WHERE last_updated > '2022-11-03 14:20:49.962000';`))
	wm, _ = zone.NewWatermark(env.Raw).Read()
	g.Expect(wm).To(gomega.Equal("2022-11-04T09:00:00.000000"))
}

func TestRunExtractFailureKeepsWatermark(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	boom := errors.New(`relation "design" does not exist`)
	src := &fakeDb{tables: sourceTables(), failing: map[string]error{"design": boom}}
	env := newTestEnv(src, nil, "address", "design")

	res, err := RunExtract(context.Background(), env)
	g.Expect(err).NotTo(gomega.BeNil())
	g.Expect(errors.Is(err, rdbms.ErrQuery)).To(gomega.BeTrue())
	g.Expect(errors.Is(err, boom)).To(gomega.BeTrue())
	g.Expect(res.Failed).To(gomega.HaveKey("design"))
	g.Expect(res.Written).To(gomega.HaveLen(1))
	_, err = zone.NewWatermark(env.Raw).Read()
	g.Expect(errors.Is(err, zone.ErrMarkerMissing)).To(gomega.BeTrue())
}

func TestRunStageEndToEnd(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	src := &fakeDb{tables: sourceTables()}
	wh := &fakeDb{}
	env := newTestEnv(src, wh)

	results, err := RunStage(context.Background(), env, StageRequest{Stage: constants.StageRun})
	g.Expect(err).To(gomega.BeNil())
	g.Expect(results).To(gomega.HaveLen(3))

	tr := results[1]
	g.Expect(tr.Stage).To(gomega.Equal(constants.StageTransform))
	g.Expect(tr.Written).To(gomega.HaveLen(7))
	g.Expect(tr.Written[6]).To(gomega.Equal("dim_date/dim_date-2022-11-03T14:20:49.962000.parquet"))
	wm, err := zone.NewWatermark(env.Processed).Read()
	g.Expect(err).To(gomega.BeNil())
	g.Expect(wm).To(gomega.Equal(tr.Timestamp))

	ld := results[2]
	g.Expect(ld.Written).To(gomega.Equal(constants.LoadTables))
	g.Expect(wh.execs).To(gomega.HaveLen(len(constants.LoadTables)))
	for i, table := range constants.LoadTables {
		g.Expect(wh.execs[i]).To(gomega.HavePrefix("insert into " + table + " ("))
	}
	g.Expect(wh.execs[2]).To(gomega.ContainSubstring("'British pound'"))
	g.Expect(wh.execs[6]).To(gomega.ContainSubstring("3.94"))
	loaded, err := zone.NewLoadMarker(env.Processed).Read()
	g.Expect(err).To(gomega.BeNil())
	g.Expect(loaded).To(gomega.Equal(wm))

	// The same generation is never loaded twice.
	res, err := RunLoad(context.Background(), env)
	g.Expect(err).To(gomega.BeNil())
	g.Expect(res.Written).To(gomega.BeEmpty())
	g.Expect(wh.execs).To(gomega.HaveLen(len(constants.LoadTables)))
}

func TestRunTransformReportsFailedTablesButKeepsOthers(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	src := &fakeDb{tables: sourceTables()}
	env := newTestEnv(src, nil, "address", "currency", "design")
	_, err := RunExtract(context.Background(), env)
	g.Expect(err).To(gomega.BeNil())

	env.Clock = func() time.Time { return ts2 }
	res, err := RunTransform(context.Background(), env)
	g.Expect(err).NotTo(gomega.BeNil())
	g.Expect(errors.Is(err, zone.ErrNotFound)).To(gomega.BeTrue())
	var stageErr *StageError
	g.Expect(errors.As(err, &stageErr)).To(gomega.BeTrue())
	g.Expect(stageErr.Stage).To(gomega.Equal(constants.StageTransform))
	g.Expect(res.Failed).To(gomega.HaveLen(3))
	g.Expect(res.Failed).To(gomega.HaveKey(constants.TableDimCounterparty))
	g.Expect(res.Failed).To(gomega.HaveKey(constants.TableDimStaff))
	g.Expect(res.Failed).To(gomega.HaveKey(constants.TableFactSalesOrder))
	g.Expect(res.Skipped).To(gomega.Equal([]string{constants.TableDimDate}))
	g.Expect(res.Written).To(gomega.Equal([]string{
		"dim_location/dim_location-2022-11-04T09:00:00.000000.parquet",
		"dim_currency/dim_currency-2022-11-04T09:00:00.000000.parquet",
		"dim_design/dim_design-2022-11-04T09:00:00.000000.parquet",
	}))
	wm, err := zone.NewWatermark(env.Processed).Read()
	g.Expect(err).To(gomega.BeNil())
	g.Expect(wm).To(gomega.Equal("2022-11-04T09:00:00.000000"))

	// Load the tables that were written and skip the rest.
	wh := &fakeDb{}
	env.Warehouse = wh
	ld, err := RunLoad(context.Background(), env)
	g.Expect(err).To(gomega.BeNil())
	g.Expect(ld.Written).To(gomega.Equal([]string{
		constants.TableDimLocation, constants.TableDimCurrency, constants.TableDimDesign,
	}))
	g.Expect(ld.Skipped).To(gomega.HaveLen(4))
}

func TestRunTransformChecksCodecAndWatermark(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	env := newTestEnv(nil, nil)
	env.Config.Compression = "lz4"
	_, err := RunTransform(context.Background(), env)
	g.Expect(err).NotTo(gomega.BeNil())
	g.Expect(err.Error()).To(gomega.ContainSubstring("lz4"))

	env.Config.Compression = "gzip"
	_, err = RunTransform(context.Background(), env)
	g.Expect(errors.Is(err, zone.ErrMarkerMissing)).To(gomega.BeTrue())
	keys, _ := env.Processed.List("")
	g.Expect(keys).To(gomega.BeEmpty())
}

func TestRunTransformAppliesFilters(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	src := &fakeDb{tables: sourceTables()}
	env := newTestEnv(src, nil, "currency")
	_, err := RunExtract(context.Background(), env)
	g.Expect(err).To(gomega.BeNil())

	g.Expect(env.Config.MergeYAML([]byte(`filters: {currency: {"==": [{"var": "currency_code"}, "USD"]}}`))).To(gomega.Succeed())
	_, _ = RunTransform(context.Background(), env)
	d, err := zone.NewProcessedZone(env.Processed).Latest(constants.TableDimCurrency)
	g.Expect(err).To(gomega.BeNil())
	g.Expect(d.Len()).To(gomega.Equal(1))
	g.Expect(d.Row(0).Get("currency_name")).To(gomega.Equal("United States dollar"))
}

func TestRunTransformStopsWhenCancelled(t *testing.T) {
	env := newTestEnv(&fakeDb{tables: sourceTables()}, nil, "currency")
	if _, err := RunExtract(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunTransform(ctx, env)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	keys, err := env.Processed.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected nothing written to the processed bucket, got %v", keys)
	}
}

func TestRunLoadNeedsProcessedWatermark(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	wh := &fakeDb{}
	env := newTestEnv(nil, wh)
	_, err := RunLoad(context.Background(), env)
	g.Expect(errors.Is(err, zone.ErrMarkerMissing)).To(gomega.BeTrue())
	g.Expect(wh.execs).To(gomega.BeEmpty())
}

func TestEnvOpensConnectionsOnDemand(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	env := newTestEnv(nil, nil)
	opened := make([]string, 0)
	env.OpenDb = func(log logger.Logger, d rdbms.DsnConnectionDetails) (rdbms.Connector, error) {
		opened = append(opened, d.Dsn)
		return &fakeDb{}, nil
	}
	_, err := env.source()
	g.Expect(err).NotTo(gomega.BeNil())

	env.Config.SourceDsn = "postgres://u:p@localhost/totesys"
	c, err := env.source()
	g.Expect(err).To(gomega.BeNil())
	_, _ = env.source()
	g.Expect(opened).To(gomega.Equal([]string{"postgres://u:p@localhost/totesys"}))

	env.Close()
	g.Expect(c.(*fakeDb).closed).To(gomega.BeTrue())
	g.Expect(env.Source).To(gomega.BeNil())
}

func TestNewEnvParsesBuckets(t *testing.T) {
	cfg := config.Default()
	cfg.RawBucket = "s3://totesys-raw/landing"
	cfg.ProcessedBucket = "totesys-processed"
	env, err := NewEnv(cfg, logger.NewLogger("totepipe-test", "error", false))
	if err != nil {
		t.Fatal(err)
	}
	if env.Raw.Bucket() != "totesys-raw" {
		t.Fatalf("expected raw bucket totesys-raw, got %q", env.Raw.Bucket())
	}
	if env.Processed.Bucket() != "totesys-processed" {
		t.Fatalf("expected processed bucket totesys-processed, got %q", env.Processed.Bucket())
	}

	cfg.RawBucket = "gs://totesys-raw"
	if _, err := NewEnv(cfg, logger.NewLogger("totepipe-test", "error", false)); err == nil {
		t.Fatal("expected an error for a non-S3 bucket URL")
	}
}

func TestDecodeStageRequest(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	req, err := DecodeStageRequest(map[string]interface{}{
		"stage":  " Extract ",
		"tables": []interface{}{"staff", "department"},
	})
	g.Expect(err).To(gomega.BeNil())
	g.Expect(req).To(gomega.Equal(StageRequest{Stage: "extract", Tables: []string{"staff", "department"}}))

	_, err = DecodeStageRequest(map[string]interface{}{"stage": []int{1}})
	g.Expect(err).NotTo(gomega.BeNil())

	_, err = RunStage(context.Background(), newTestEnv(nil, nil), StageRequest{Stage: "deploy"})
	g.Expect(errors.Is(err, ErrUnknownStage)).To(gomega.BeTrue())
}

func TestRunStageOverridesTablesForOneRun(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	src := &fakeDb{tables: sourceTables()}
	env := newTestEnv(src, nil)
	before := env.Config.Tables

	results, err := RunStage(context.Background(), env, StageRequest{Stage: "extract", Tables: []string{"staff"}})
	g.Expect(err).To(gomega.BeNil())
	g.Expect(results[0].Written).To(gomega.Equal([]string{"staff/staff-2022-11-03T14:20:49.962000.json"}))
	g.Expect(env.Config.Tables).To(gomega.Equal(before))
}
