package meeting

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInvitation is returned when the body has no "When:" line
	ErrMalformedInvitation = errors.New("malformed invitation")

	// ErrMalformedWhenLine is returned when a "When:" line does not fit its grammar
	ErrMalformedWhenLine = errors.New("malformed when line")

	// ErrUnrecognizedRecurrencePattern is returned when an "Occurs ..." line matches none of the recurring grammars
	ErrUnrecognizedRecurrencePattern = errors.New("unrecognized recurrence pattern")

	// ErrInvalidWeekday is returned when the weekday walk finds no matching day within a week
	ErrInvalidWeekday = errors.New("invalid weekday")
)

// ParseError describes a failed parse together with the line that caused it.
type ParseError struct {
	Kind   error
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Line != "" {
		msg += fmt.Sprintf(" (line %q)", e.Line)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// KindName returns a short label for the error kind, used in logs and metrics.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrMalformedInvitation):
		return "malformed_invitation"
	case errors.Is(err, ErrMalformedWhenLine):
		return "malformed_when_line"
	case errors.Is(err, ErrUnrecognizedRecurrencePattern):
		return "unrecognized_recurrence_pattern"
	case errors.Is(err, ErrInvalidWeekday):
		return "invalid_weekday"
	default:
		return "unknown"
	}
}

// IsParseError reports whether err is one of the parser's error kinds.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func malformed(line, format string, args ...interface{}) error {
	return &ParseError{Kind: ErrMalformedWhenLine, Line: line, Reason: fmt.Sprintf(format, args...)}
}
