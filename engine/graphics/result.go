package graphics

import "fmt"

// Code classifies every failure the abstraction can report. Backend-native
// error values (VkResult, HRESULT, NSError) are translated to a Code at the
// boundary of each device call; callers never see native error types.
type Code uint8

const (
	// No error
	Ok Code = iota
	// Bad argument, e.g. invalid buffer/texture/bind type
	ArgumentInvalid
	// Nil input for a required argument
	ArgumentNull
	// Argument out of range, e.g. attachment/mip-level/size out of range
	ArgumentOutOfRange
	// Cannot execute the operation in the current state
	InvalidOperation
	// Feature is not supported on the current hardware or software
	Unsupported
	// Feature has not yet been implemented
	Unimplemented
	// Something bad happened internally
	RuntimeError
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "Ok"
	case ArgumentInvalid:
		return "ArgumentInvalid"
	case ArgumentNull:
		return "ArgumentNull"
	case ArgumentOutOfRange:
		return "ArgumentOutOfRange"
	case InvalidOperation:
		return "InvalidOperation"
	case Unsupported:
		return "Unsupported"
	case Unimplemented:
		return "Unimplemented"
	case RuntimeError:
		return "RuntimeError"
	}
	return "Unknown"
}

// Result carries a Code and a diagnostic message. It implements error so the
// factories can return it straight through `(obj, error)` signatures.
type Result struct {
	Code    Code
	Message string
}

func NewResult(code Code, format string, args ...interface{}) *Result {
	return &Result{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (r *Result) Error() string {
	if r.Message == "" {
		return r.Code.String()
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func (r *Result) IsOk() bool {
	return r == nil || r.Code == Ok
}

// CodeOf extracts the Code from an error returned by this package. A nil
// error is Ok; an unrelated error is RuntimeError.
func CodeOf(err error) Code {
	if err == nil {
		return Ok
	}
	if r, ok := err.(*Result); ok {
		return r.Code
	}
	return RuntimeError
}
