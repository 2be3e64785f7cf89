package errors

import (
	"errors"
	"fmt"
)

const (
	CodeDecode       = "DECODE_ERROR"
	CodeType         = "TYPE_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeInternal     = "INTERNAL_ERROR"
)

const (
	ExitOK           = 0
	ExitInternal     = 1
	ExitInvalidInput = 2
	ExitDecode       = 3
	ExitType         = 4
)

type AppError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	ExitCode int            `json:"-"`
	Details  map[string]any `json:"details,omitempty"`
	Err      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Status() int {
	return e.ExitCode
}

// WithDetails merges details into the error, keeping keys that were already set
// unless overwritten.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func New(code, message string, exitCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Wrap(err error, code, message string, exitCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: exitCode,
		Err:      err,
	}
}

// Decode reports input that could not be read or parsed: an unreadable file, a
// malformed table or malformed JSON in the target column.
func Decode(message string, err error) *AppError {
	return Wrap(err, CodeDecode, message, ExitDecode)
}

// Type reports decoded data whose shape is not the one expected.
func Type(message string, err error) *AppError {
	return Wrap(err, CodeType, message, ExitType)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message, ExitInvalidInput)
}

func Internal(message string, err error) *AppError {
	return Wrap(err, CodeInternal, message, ExitInternal)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// ExitStatus maps err to the process exit status. A nil error is ExitOK.
func ExitStatus(err error) int {
	if err == nil {
		return ExitOK
	}
	return AsAppError(err).Status()
}
