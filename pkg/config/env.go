package config

const (
	EnvQuote        = "CROWDTAGS_QUOTE"
	EnvDelimiter    = "CROWDTAGS_DELIMITER"
	EnvEmptyBatch   = "CROWDTAGS_EMPTY_BATCH"
	EnvOutputFormat = "CROWDTAGS_OUTPUT_FORMAT"
	EnvIndexField   = "CROWDTAGS_INDEX_FIELD"

	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)
