package model

import (
	"errors"
	"fmt"
)

// ErrorKind names an entry of the pipeline error taxonomy.
type ErrorKind string

const (
	ErrorKindFetch      ErrorKind = "fetch"
	ErrorKindParse      ErrorKind = "parse"
	ErrorKindConflict   ErrorKind = "conflict"
	ErrorKindLoad       ErrorKind = "load"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindInternal   ErrorKind = "internal"
)

// FetchError is a transport, timeout or non-2xx failure retrieving a document.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means a document could not be segmented into fields at all.
// It is fatal for that document only.
type ParseError struct {
	DocumentID string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.DocumentID, e.Reason)
}

// ExtractionGap is the data-quality signal for an expected field no rule matched.
// It is never returned as a failure.
type ExtractionGap struct {
	DocumentID string
	Field      Field
}

func (e *ExtractionGap) Error() string {
	return fmt.Sprintf("extraction gap %s: %s", e.DocumentID, e.Field)
}

// ConflictError records two sources disagreeing with no alias resolving them.
// It is resolved by authority ranking and flagged for review.
type ConflictError struct {
	AwardNum    string `json:"awardNum"`
	Field       Field  `json:"field"`
	DetailValue string `json:"detailValue"`
	IndexValue  string `json:"indexValue"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict %s.%s: detail=%q index=%q", e.AwardNum, e.Field, e.DetailValue, e.IndexValue)
}

// LoadError is a store-level failure inserting one record.
type LoadError struct {
	AwardNum string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.AwardNum, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError is a record invariant violation.
type ValidationError struct {
	AwardNum string
	Field    Field
	Message  string
}

func (e *ValidationError) Error() string {
	if e.AwardNum == "" {
		return fmt.Sprintf("invalid record: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid record %s: %s: %s", e.AwardNum, e.Field, e.Message)
}

// BatchError is one accumulated per-record failure in a batch run, carrying
// enough context for a manual retry.
type BatchError struct {
	Kind     ErrorKind `json:"kind"`
	Stage    string    `json:"stage"`
	Year     int       `json:"year,omitempty"`
	SourceID string    `json:"sourceId,omitempty"`
	AwardNum string    `json:"awardNum,omitempty"`
	Message  string    `json:"message"`
}

func (e BatchError) Error() string {
	id := e.AwardNum
	if id == "" {
		id = e.SourceID
	}
	return fmt.Sprintf("%s [%s] %s: %s", e.Stage, e.Kind, id, e.Message)
}

// KindOf maps err onto the taxonomy; unknown errors are internal.
func KindOf(err error) ErrorKind {
	var (
		fe *FetchError
		pe *ParseError
		ce *ConflictError
		le *LoadError
		ve *ValidationError
	)
	switch {
	case errors.As(err, &ve):
		return ErrorKindValidation
	case errors.As(err, &le):
		return ErrorKindLoad
	case errors.As(err, &pe):
		return ErrorKindParse
	case errors.As(err, &fe):
		return ErrorKindFetch
	case errors.As(err, &ce):
		return ErrorKindConflict
	}
	return ErrorKindInternal
}
