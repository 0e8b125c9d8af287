package constants

// Zones and files

const (
	WatermarkKey             = "last_updated.txt" // single object per bucket holding one ISO-8601 timestamp.
	LoadMarkerKey            = "last_loaded.txt"  // processed bucket only: the watermark generation already loaded.
	RawFileExt               = "json"
	ProcessedFileExt         = "parquet"
	TimeFormatWatermark      = "2006-01-02T15:04:05.000000" // ISO-8601 with microseconds, sorts lexicographically.
	TimeFormatWatermarkRegex = "^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}\\.[0-9]{6}$"
	TimeFormatSqlTimestamp   = "2006-01-02 15:04:05.000000" // rendering of source database timestamps in raw JSON.
	TimeFormatDate           = "2006-01-02"
	DefaultRawBucket         = "fscifa-raw-data"
	DefaultProcessedBucket   = "fscifa-processed-data"
	DefaultRegion            = "eu-west-2"
	DefaultCompression       = "snappy"
	DefaultLogLevel          = "info"
	DefaultServerPort        = 8080
	ServiceName              = "totepipe"
	EnvVarPrefix             = "TP" // prefixed for environment variables in twelveFactorMode
	ConfigDir                = ".totepipe"
	ConfigFileName           = "config.yaml"
	StageExtract             = "extract"
	StageTransform           = "transform"
	StageLoad                = "load"
	StageRun                 = "run"
	ConnectionTypePostgres   = "postgres"
	ConnectionTypeSnowflake  = "snowflake"
)

// Source tables in the operational database.
const (
	TableAddress       = "address"
	TableCounterparty  = "counterparty"
	TableCurrency      = "currency"
	TableDepartment    = "department"
	TableDesign        = "design"
	TablePayment       = "payment"
	TablePaymentType   = "payment_type"
	TablePurchaseOrder = "purchase_order"
	TableSalesOrder    = "sales_order"
	TableStaff         = "staff"
	TableTransaction   = "transaction"
)

// Star schema tables in the warehouse.
const (
	TableDimLocation     = "dim_location"
	TableDimCounterparty = "dim_counterparty"
	TableDimCurrency     = "dim_currency"
	TableDimStaff        = "dim_staff"
	TableDimDesign       = "dim_design"
	TableDimDate         = "dim_date"
	TableFactSalesOrder  = "fact_sales_order"
)

// ExtractTables is the default list of operational tables copied to the raw zone.
var ExtractTables = []string{
	TableAddress,
	TableCounterparty,
	TableCurrency,
	TableDepartment,
	TableDesign,
	TablePayment,
	TablePaymentType,
	TablePurchaseOrder,
	TableSalesOrder,
	TableStaff,
	TableTransaction,
}

// LoadTables lists the processed tables in warehouse load order: dimensions before the fact.
var LoadTables = []string{
	TableDimLocation,
	TableDimCounterparty,
	TableDimCurrency,
	TableDimStaff,
	TableDimDesign,
	TableDimDate,
	TableFactSalesOrder,
}
