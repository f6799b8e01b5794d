package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrQuestionNotFound is returned when a question id does not resolve or
	// the question has been deactivated.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrStudentNotFound is returned when a student id does not resolve.
	ErrStudentNotFound = errors.New("student not found")
	// ErrBadgeNotFound is returned when a badge id does not resolve.
	ErrBadgeNotFound = errors.New("badge not found")
)

// ValidationError reports field-level problems with a client payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrBadgeNotFound)
}
