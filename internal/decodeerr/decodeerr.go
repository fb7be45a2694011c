// Package decodeerr carries structured context for internal failures the
// hook engine observes but must never propagate to the VM (spec.md §7:
// "Nothing propagates: every hook invocation returns normally to the VM
// regardless of what happened inside."). It exists purely so those
// failures can still be logged with useful context by internal/hooklog.
//
// Adapted from the teacher's pkg/errors builder style (WithLineInfo,
// WithSuggestion, WithFileName), trimmed of the colorized multi-line
// formatting that package uses for compiler diagnostics — an attached
// operator reading a log line has no use for ANSI source snippets.
package decodeerr

import "fmt"

// DecodeError wraps an underlying error with the decode-time context that
// produced it: which stage of the hook raised it, and whatever addresses
// or identifiers were involved.
type DecodeError struct {
	Stage   string
	Err     error
	Context map[string]string
}

// Wrap creates a DecodeError for a failure at the given stage (e.g.
// "frame.Decode", "asyncbreak.service").
func Wrap(err error, stage string) *DecodeError {
	return &DecodeError{Stage: stage, Err: err, Context: make(map[string]string)}
}

// WithAddr attaches an address-valued field (VM state pointer, prototype
// pointer, and the like) to the error's context.
func (e *DecodeError) WithAddr(key string, addr uintptr) *DecodeError {
	e.Context[key] = fmt.Sprintf("0x%x", addr)
	return e
}

// With attaches an arbitrary string field to the error's context.
func (e *DecodeError) With(key, value string) *DecodeError {
	e.Context[key] = value
	return e
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Err)
	for k, v := range e.Context {
		msg += fmt.Sprintf(" %s=%s", k, v)
	}
	return msg
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
