package report

import (
	"errors"
	"fmt"
)

// Format error types
const (
	ErrTypeMalformedDate    = "malformed_date"
	ErrTypeNegativeDuration = "negative_duration"
	ErrTypeUnknownPeriod    = "unknown_period"
	ErrTypeRender           = "render_error"
	ErrTypeSave             = "save_error"
)

// FormatError means no document was produced. Context names the offending
// entry or output.
type FormatError struct {
	Type    string
	Message string
	Err     error
	Context string
}

func (e *FormatError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("report error (%s) for %s: %s", e.Type, e.Context, e.Message)
	}
	return fmt.Sprintf("report error (%s): %s", e.Type, e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError checks if err comes from report generation or rendering
func IsFormatError(err error) bool {
	var formatErr *FormatError
	return errors.As(err, &formatErr)
}
