package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents fetch timeouts, non-2xx answers and transport errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents the source site asking us to back off
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStructure represents a page without the results table
	ErrorTypeStructure ErrorType = "structure"
	// ErrorTypeRow represents a table row with too few columns
	ErrorTypeRow ErrorType = "row"
	// ErrorTypeDelivery represents a failed notification send
	ErrorTypeDelivery ErrorType = "delivery"
	// ErrorTypeConfiguration represents missing or invalid startup settings
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeExport represents flat-file export failures
	ErrorTypeExport ErrorType = "export"
)

// WatchError is an error tagged with the stage of the pipeline that produced it
type WatchError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *WatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *WatchError) Unwrap() error {
	return e.Err
}

// New creates a new WatchError
func New(errType ErrorType, source, message string, err error) *WatchError {
	return &WatchError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *WatchError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *WatchError {
	return New(ErrorTypeRateLimit, source, fmt.Sprintf("rate limited for %v", duration), nil)
}

// NewStructure creates a new structural absence error
func NewStructure(source, message string) *WatchError {
	return New(ErrorTypeStructure, source, message, nil)
}

// NewRow creates a new row malformation error
func NewRow(source, message string) *WatchError {
	return New(ErrorTypeRow, source, message, nil)
}

// NewDelivery creates a new delivery error
func NewDelivery(recipient, message string, err error) *WatchError {
	return New(ErrorTypeDelivery, recipient, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *WatchError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// NewExport creates a new export error
func NewExport(path, message string, err error) *WatchError {
	return New(ErrorTypeExport, path, message, err)
}

// Is reports whether err wraps a WatchError of the given type
func Is(err error, errType ErrorType) bool {
	var we *WatchError
	return stderrors.As(err, &we) && we.Type == errType
}
