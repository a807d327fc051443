package mapvis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDateNotFound      = errors.New("date not found")
	ErrParameterNotFound = errors.New("ageing factor not found in data")
	ErrNoFrames          = errors.New("no frames were generated")
)

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrMalformedJSON represents an input that is not a single valid JSON value.
type ErrMalformedJSON struct {
	Offset int64
	Err    error
}

func (e *ErrMalformedJSON) Error() string {
	return fmt.Sprintf("malformed JSON at byte %d: %v", e.Offset, e.Err)
}

func (e *ErrMalformedJSON) Unwrap() error {
	return e.Err
}

// ErrParseMapping represents a mapping table that cannot be used at all.
type ErrParseMapping struct {
	Source string
	Err    error
}

func (e *ErrParseMapping) Error() string {
	return fmt.Sprintf("error parsing mapping %q: %v", e.Source, e.Err)
}

func (e *ErrParseMapping) Unwrap() error {
	return e.Err
}

// ErrMappingNotFound is returned when a detector has no loaded mapping.
type ErrMappingNotFound struct {
	Name      string
	Available []string
}

func (e *ErrMappingNotFound) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("mapping for detector %q not found: no mappings loaded", e.Name)
	}
	return fmt.Sprintf("mapping for detector %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// ErrInvalidOptions represents a rendering option outside its domain.
type ErrInvalidOptions struct {
	Field  string
	Reason string
}

func (e *ErrInvalidOptions) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Field, e.Reason)
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}

// Issue is a single finding of the document validator. Path uses the JSON
// layout of the input, e.g. datasets[0].modules[2].channels[5].name.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// ValidationError aggregates every error found in a document.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	return fmt.Sprintf("data validation failed with %d error(s): %s", len(e.Issues), strings.Join(lines, "; "))
}

// HasPath reports whether any issue was raised for the given path.
func (e *ValidationError) HasPath(path string) bool {
	for _, issue := range e.Issues {
		if issue.Path == path {
			return true
		}
	}
	return false
}
