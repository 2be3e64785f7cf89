package loader

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	apperrors "crowdtags/pkg/errors"
)

type EmptyBatchPolicy string

const (
	// EmptyBatchKeep emits one row with a null target cell for an empty batch.
	EmptyBatchKeep EmptyBatchPolicy = "keep"
	// EmptyBatchDrop omits rows whose batch is empty.
	EmptyBatchDrop EmptyBatchPolicy = "drop"
)

const (
	DefaultQuote     = '`'
	DefaultDelimiter = ','
)

type Options struct {
	Quote      rune             `validate:"required,csvrune"`
	Delimiter  rune             `validate:"required,csvrune,nefield=Quote"`
	EmptyBatch EmptyBatchPolicy `validate:"required,oneof=keep drop"`
}

func DefaultOptions() Options {
	return Options{
		Quote:      DefaultQuote,
		Delimiter:  DefaultDelimiter,
		EmptyBatch: EmptyBatchKeep,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("csvrune", func(fl validator.FieldLevel) bool {
		r := rune(fl.Field().Int())
		return utf8.ValidRune(r) && r != utf8.RuneError && r != '\r' && r != '\n'
	})
	return v
}

// Validate checks the options and returns an invalid-input error listing every
// offending field.
func (o Options) Validate() error {
	return validateOptions(newValidator(), o)
}

func validateOptions(v *validator.Validate, o Options) error {
	err := v.Struct(o)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.Internal("options validation failed", err)
	}
	fields := make(map[string]any, len(validationErrs))
	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msg := describe(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, fe.Field()+" "+msg)
	}
	return apperrors.InvalidInput("invalid loader options: " + strings.Join(msgs, "; ")).WithDetails(fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "csvrune":
		return fmt.Sprintf("must be a single character other than a line break, got %q", rune(fe.Value().(int32)))
	case "nefield":
		return "must differ from " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
