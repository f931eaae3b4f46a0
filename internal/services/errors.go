package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure markers. Errors built with Wrap carry one of these so callers can
// classify a failure without matching on message text.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrStorage       = errors.New("storage error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap tags err with marker and prefixes it with the step, operation and
// message that were being attempted. A nil marker means ErrTransient.
func Wrap(marker error, step, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinNonEmpty(step, operation, message)
	if detail == "" {
		detail = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// Kind names the marker carried by err for the error_kind log field. Errors
// that were never wrapped report "unclassified".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "unclassified"
	}
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ": ")
}
