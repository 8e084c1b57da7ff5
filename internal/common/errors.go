package common

import (
	"errors"
	"fmt"
)

// Code identifies a failure class in the compliance pipeline.
type Code string

const (
	CodeUnsupportedImageFormat    Code = "UNSUPPORTED_IMAGE_FORMAT"
	CodeUnsupportedDocumentFormat Code = "UNSUPPORTED_DOCUMENT_FORMAT"
	CodeEngineUnavailable         Code = "RECOGNITION_ENGINE_UNAVAILABLE"
	CodeRecognitionFailed         Code = "RECOGNITION_FAILED"
	CodeRecognitionTimeout        Code = "RECOGNITION_TIMEOUT"
	CodeRasterizationTimeout      Code = "RASTERIZATION_TIMEOUT"
	CodeConfiguration             Code = "CONFIGURATION_ERROR"
)

// Sentinel errors. Every AppError unwraps to exactly one of these so callers
// can branch with errors.Is without inspecting codes.
var (
	ErrUnsupportedImageFormat    = errors.New("unsupported image format")
	ErrUnsupportedDocumentFormat = errors.New("unsupported document format")
	ErrEngineUnavailable         = errors.New("recognition engine unavailable")
	ErrRecognitionFailed         = errors.New("recognition failed")
	ErrRecognitionTimeout        = errors.New("recognition timed out")
	ErrRasterizationTimeout      = errors.New("rasterization timed out")
	ErrConfiguration             = errors.New("configuration error")
)

var sentinels = map[Code]error{
	CodeUnsupportedImageFormat:    ErrUnsupportedImageFormat,
	CodeUnsupportedDocumentFormat: ErrUnsupportedDocumentFormat,
	CodeEngineUnavailable:         ErrEngineUnavailable,
	CodeRecognitionFailed:         ErrRecognitionFailed,
	CodeRecognitionTimeout:        ErrRecognitionTimeout,
	CodeRasterizationTimeout:      ErrRasterizationTimeout,
	CodeConfiguration:             ErrConfiguration,
}

// AppError is a typed pipeline failure.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the code's sentinel and the underlying cause.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewAppError builds an AppError.
func NewAppError(code Code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Errorf builds an AppError with a formatted message and no cause.
func Errorf(code Code, format string, args ...any) *AppError {
	return NewAppError(code, fmt.Sprintf(format, args...), nil)
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) Code {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code
	}
	return ""
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
