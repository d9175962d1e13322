package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
)

// Code identifies the rule a ValidationError reports.
type Code string

const (
	CodeInvalidRow       Code = "InvalidRow"
	CodeInvalidSeat      Code = "InvalidSeat"
	CodeSeatTaken        Code = "SeatTaken"
	CodeInvalidWindow    Code = "InvalidWindow"
	CodePastDeparture    Code = "PastDeparture"
	CodeScheduleConflict Code = "ScheduleConflict"
	CodeSameEndpoints    Code = "SameEndpoints"
	CodeDuplicateRoute   Code = "DuplicateRoute"
	CodeInvalidDistance  Code = "InvalidDistance"
	CodeInvalidSeatGrid  Code = "InvalidSeatGrid"
	CodeSeatGridShrink   Code = "SeatGridShrink"
	CodeUnknownReference Code = "UnknownReference"
	CodeRequired         Code = "Required"
)

// ValidationError is a client-caused rejection keyed by the offending field.
type ValidationError struct {
	Code   Code
	Fields map[string]string
}

func NewValidationError(code Code, field, reason string) *ValidationError {
	return &ValidationError{Code: code, Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed (" + string(e.Code) + "): " + strings.Join(parts, "; ")
}

// Is matches another *ValidationError with the same code, or any code when the
// target's code is empty.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// HasCode reports whether err carries a ValidationError with the given code.
func HasCode(err error, code Code) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Code == code
}
