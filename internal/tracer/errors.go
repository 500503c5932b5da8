package tracer

import (
	"errors"
	"fmt"
	"strings"
)

// TraceError represents an error detected while driving a tracer.
//
// Trace errors include:
//   - Allocation underflow: a tag with no pending allocation
//   - Stale operation end: an end that matches no open frame
//   - Run incomplete: grids requested while frames remain open
//   - Unknown event: a journal entry of an unrecognised kind
//
// Only a stale end is tolerated; the tracer logs it and never returns it.
type TraceError struct {
	// Code identifies the error category.
	Code TraceErrorCode

	// Message is a human-readable description.
	Message string

	// Operation is the qualified operation name involved, if any.
	Operation string

	// Details contains additional context.
	Details map[string]string
}

// TraceErrorCode categorizes trace errors.
type TraceErrorCode string

const (
	// ErrCodeAllocationUnderflow indicates a tag call with an empty
	// allocation queue. Fatal for the run.
	ErrCodeAllocationUnderflow TraceErrorCode = "ALLOCATION_UNDERFLOW"

	// ErrCodeStaleOperationEnd indicates an end event with no matching open
	// frame, e.g. after the engine aborted mid-call.
	ErrCodeStaleOperationEnd TraceErrorCode = "STALE_OPERATION_END"

	// ErrCodeRunIncomplete indicates frames are still open.
	ErrCodeRunIncomplete TraceErrorCode = "RUN_INCOMPLETE"

	// ErrCodeUnknownEvent indicates an event kind the dispatcher cannot route.
	ErrCodeUnknownEvent TraceErrorCode = "UNKNOWN_EVENT"
)

// Error implements the error interface.
func (e *TraceError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s (operation=%s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsAllocationUnderflow returns true if the error is an allocation underflow.
// Uses errors.As to handle wrapped errors.
func IsAllocationUnderflow(err error) bool {
	return hasCode(err, ErrCodeAllocationUnderflow)
}

// IsStaleOperationEnd returns true if the error is a stale operation end.
func IsStaleOperationEnd(err error) bool {
	return hasCode(err, ErrCodeStaleOperationEnd)
}

// IsRunIncomplete returns true if the error reports open frames.
func IsRunIncomplete(err error) bool {
	return hasCode(err, ErrCodeRunIncomplete)
}

// IsUnknownEvent returns true if the error reports an unroutable event.
func IsUnknownEvent(err error) bool {
	return hasCode(err, ErrCodeUnknownEvent)
}

func hasCode(err error, code TraceErrorCode) bool {
	var te *TraceError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// NewUnderflowError creates a TraceError for a tag without allocation.
func NewUnderflowError(label string) *TraceError {
	return &TraceError{
		Code:    ErrCodeAllocationUnderflow,
		Message: fmt.Sprintf("tag %q has no pending allocation", label),
		Details: map[string]string{"label": label},
	}
}

// NewStaleEndError creates a TraceError for an end that matches no open
// frame. top is the name of the innermost open frame, or "" when the stack
// is empty.
func NewStaleEndError(operation, top string) *TraceError {
	msg := "end with empty call stack"
	if top != "" {
		msg = fmt.Sprintf("end does not match open frame %s", top)
	}
	return &TraceError{
		Code:      ErrCodeStaleOperationEnd,
		Message:   msg,
		Operation: operation,
		Details:   map[string]string{"top": top},
	}
}

// NewIncompleteError creates a TraceError listing the open frames, outermost
// first.
func NewIncompleteError(open []string) *TraceError {
	return &TraceError{
		Code:    ErrCodeRunIncomplete,
		Message: fmt.Sprintf("%d frame(s) still open: %s", len(open), strings.Join(open, " > ")),
		Details: map[string]string{"depth": fmt.Sprintf("%d", len(open))},
	}
}

// NewUnknownEventError creates a TraceError for an unroutable event kind.
func NewUnknownEventError(kind string) *TraceError {
	return &TraceError{
		Code:    ErrCodeUnknownEvent,
		Message: fmt.Sprintf("unknown event kind %q", kind),
	}
}
