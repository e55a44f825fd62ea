package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNetwork    = errors.New("network error")
	ErrAuth       = errors.New("auth error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrTimeout    = errors.New("timeout")
	ErrServer     = errors.New("server error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrServer
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// MarkedError tags err with marker without altering its message. Callers that
// need the original text preserved for user-facing translation use this
// instead of Wrap.
type MarkedError struct {
	Marker error
	Err    error
}

func (e *MarkedError) Error() string {
	if e.Err == nil {
		return e.Marker.Error()
	}
	return e.Err.Error()
}

func (e *MarkedError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Mark returns err tagged with marker. The message is err's message.
func Mark(marker, err error) error {
	if err == nil {
		return nil
	}
	return &MarkedError{Marker: marker, Err: err}
}

// Markf tags a formatted message with marker.
func Markf(marker error, format string, args ...any) error {
	return &MarkedError{Marker: marker, Err: fmt.Errorf(format, args...)}
}

// Kind returns the taxonomy label for err, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrServer):
		return "server"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
