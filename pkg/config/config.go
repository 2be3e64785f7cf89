package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	apperrors "crowdtags/pkg/errors"
	"crowdtags/pkg/logger"
)

type Config struct {
	Quote        string `validate:"required"`
	Delimiter    string `validate:"required"`
	EmptyBatch   string `validate:"oneof=keep drop"`
	OutputFormat string `validate:"oneof=csv jsonl"`
	IndexField   string

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`
}

// Override adjusts a configuration before it is validated, e.g. from command line
// flags.
type Override func(*Config)

// Load reads envFile (when it exists) into the process environment without
// overriding variables that are already set, builds the configuration from the
// environment, applies overrides and validates the result.
func Load(envFile string, overrides ...Override) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg := FromEnv()
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromEnv() *Config {
	return &Config{
		Quote:        getEnvStr(EnvQuote, DefaultQuote),
		Delimiter:    getEnvStr(EnvDelimiter, DefaultDelimiter),
		EmptyBatch:   getEnvStr(EnvEmptyBatch, DefaultEmptyBatch),
		OutputFormat: getEnvStr(EnvOutputFormat, DefaultOutputFormat),
		IndexField:   getEnvStr(EnvIndexField, DefaultIndexField),

		LogLevel:  strings.ToLower(getEnvStr(EnvLogLevel, DefaultLogLevel)),
		LogFormat: strings.ToLower(getEnvStr(EnvLogFormat, DefaultLogFormat)),
	}
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "cannot load env file "+path, apperrors.ExitInvalidInput)
	}
	return nil
}

func (cfg *Config) Validate() error {
	var problems []string

	if err := validator.New().Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return apperrors.Internal("configuration validation failed", err)
		}
		for _, fe := range validationErrs {
			if fe.Tag() == "required" {
				problems = append(problems, fmt.Sprintf("%s cannot be empty", fe.Field()))
				continue
			}
			problems = append(problems, fmt.Sprintf("%s must be one of [%s], got: %q", fe.Field(), fe.Param(), fe.Value()))
		}
	}

	checkChar := func(name, value string) {
		if value == "" {
			return
		}
		if utf8.RuneCountInString(value) != 1 {
			problems = append(problems, fmt.Sprintf("%s must be a single character, got: %q", name, value))
			return
		}
		if value == "\n" || value == "\r" {
			problems = append(problems, fmt.Sprintf("%s cannot be a line break", name))
		}
	}
	checkChar("Quote", cfg.Quote)
	checkChar("Delimiter", cfg.Delimiter)
	if cfg.Quote != "" && cfg.Quote == cfg.Delimiter {
		problems = append(problems, fmt.Sprintf("Quote and Delimiter must differ, both are %q", cfg.Quote))
	}

	if len(problems) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, p := range problems {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, p)
		}
		return apperrors.InvalidInput(errMsg).WithDetails(map[string]any{"problems": problems})
	}

	return nil
}

func (cfg *Config) NewLogger(out io.Writer, component string) *logger.Logger {
	if out == nil {
		out = os.Stderr
	}
	return logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Output:    out,
		Component: component,
	})
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Debug("Configuration loaded successfully",
		"quote", cfg.Quote,
		"delimiter", cfg.Delimiter,
		"empty_batch", cfg.EmptyBatch,
		"output_format", cfg.OutputFormat,
		"index_field", cfg.IndexField,
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
	)
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
