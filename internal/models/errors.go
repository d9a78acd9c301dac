package models

import (
	"fmt"
	"sort"
	"strings"
)

const (
	MsgRequired   = "This field is required."
	MsgNull       = "This field may not be null."
	MsgNotString  = "Not a valid string."
	MsgNotBoolean = "Must be a valid boolean."

	NonFieldErrors = "non_field_errors"
)

// ValidationError maps a field name to the problems found with it.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// OrNil returns e when it holds at least one problem.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
