package config

const (
	DefaultEnvFile = ".env"

	DefaultQuote        = "`"
	DefaultDelimiter    = ","
	DefaultEmptyBatch   = "keep"
	DefaultOutputFormat = FormatCSV
	DefaultIndexField   = ""

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

const (
	FormatCSV       = "csv"
	FormatJSONLines = "jsonl"
)
