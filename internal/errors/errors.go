package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code        string
	Message     string
	Remediation string
	Cause       error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithRemediation creates an AppError carrying remediation guidance
func NewWithRemediation(code, message, remediation string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Remediation: remediation,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:        appErr.Code,
			Message:     message,
			Remediation: appErr.Remediation,
			Cause:       appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetRemediation returns remediation guidance when available
func GetRemediation(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Remediation
	}
	return ""
}

// Predefined error codes.
//
// Configuration errors are fatal for the affected question or run;
// they indicate a mismatch between declared structure and actual data.
const (
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeInvalidType          = "INVALID_TYPE"
	CodeNegativeWeights      = "NEGATIVE_WEIGHTS"
	CodeInvalidWeight        = "INVALID_WEIGHT"
	CodeNoValidWeights       = "NO_VALID_WEIGHTS"
	CodeBannerColumnNotFound = "BANNER_COLUMN_NOT_FOUND"
	CodeInvalidSegmentKey    = "INVALID_SEGMENT_KEY"
	CodeInvalidComposite     = "INVALID_COMPOSITE"
	CodeInvalidRankingFormat = "INVALID_RANKING_FORMAT"
	CodeEmptyRankingMatrix   = "EMPTY_RANKING_MATRIX"
	CodeInvalidFilter        = "INVALID_FILTER"
	CodeCheckpointError      = "CHECKPOINT_ERROR"
	CodeDatabaseError        = "DATABASE_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidType(message string) *AppError {
	return NewWithRemediation(CodeInvalidType, message,
		"check that the configured column holds numeric values in the source file")
}

func NegativeWeights(message string) *AppError {
	return NewWithRemediation(CodeNegativeWeights, message,
		"negative design weights are never repaired silently; fix the weight column or choose an explicit policy")
}

func NoValidWeights(message string) *AppError {
	return NewWithRemediation(CodeNoValidWeights, message,
		"no respondent has a positive finite weight after repair; verify the weight column")
}

func BannerColumnNotFound(column string) *AppError {
	return NewWithRemediation(CodeBannerColumnNotFound,
		fmt.Sprintf("banner column %q not found in data", column),
		"the banner specification names a column the dataset does not contain; fix the specification or the export")
}

func InvalidComposite(message string) *AppError {
	return New(CodeInvalidComposite, message)
}

func InvalidRankingFormat(message string) *AppError {
	return New(CodeInvalidRankingFormat, message)
}

func InvalidFilter(message string) *AppError {
	return New(CodeInvalidFilter, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
