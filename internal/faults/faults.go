// Package faults classifies pipeline failures. Every error that leaves the
// builder or the executor matches exactly one of the kind sentinels below via
// errors.Is, except that a provenance failure escalated by the executor also
// matches ErrExecution.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration covers unknown variants, missing required parameters,
	// mismatched merge inputs and colliding outputs. It aborts the run.
	ErrConfiguration = errors.New("configuration error")
	// ErrDiscovery covers raw inputs that match zero or several files. It
	// fails only the batch that needed the input.
	ErrDiscovery = errors.New("discovery error")
	// ErrExecution covers non-zero exits and declared outputs that are
	// missing after a run.
	ErrExecution = errors.New("execution error")
	// ErrProvenance covers failures to capture the environment or to write
	// provenance records.
	ErrProvenance = errors.New("provenance error")
)

// Error is a classified failure. Op names where it happened (a parameter, a
// task node, a command line).
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Configurationf returns a configuration error for op.
func Configurationf(op, format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// MissingParameter reports a required parameter that was not supplied.
func MissingParameter(name string) error {
	return &Error{Kind: ErrConfiguration, Op: name, Msg: "missing required parameter"}
}

// Discoveryf returns a discovery error for op.
func Discoveryf(op, format string, args ...any) error {
	return &Error{Kind: ErrDiscovery, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Execution wraps err as an execution failure of op.
func Execution(op, msg string, err error) error {
	return &Error{Kind: ErrExecution, Op: op, Msg: msg, Err: err}
}

// Provenance wraps err as a provenance failure.
func Provenance(msg string, err error) error {
	return &Error{Kind: ErrProvenance, Msg: msg, Err: err}
}

// KindOf names the kind of err for reports. Escalated provenance failures
// report as execution errors.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrDiscovery):
		return "discovery"
	case errors.Is(err, ErrExecution):
		return "execution"
	case errors.Is(err, ErrProvenance):
		return "provenance"
	default:
		return "unknown"
	}
}
