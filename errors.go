package grainmesh

import (
	"errors"
	"fmt"
)

// Error codes reported by the meshing core. All are negative.
const (
	CodeBadGrid   = -1
	CodeBadDims   = -2
	CodeLabelPair = -3
	CodeBadLabel  = -4
	CodeBadLinks  = -5
	CodeBadOption = -6
	CodeTopology  = -7
	CodeIO        = -10
	CodeFormat    = -11
)

// Error is a failure with a numeric code suited for host applications.
type Error struct {
	Code int
	Msg  string
	Err  error
}

// NewError returns an *Error with a formatted message.
func NewError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapError annotates err with a code. It returns nil if err is nil.
func WrapError(code int, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grainmesh: %s (code %d): %v", e.Msg, e.Code, e.Err)
	}
	return fmt.Sprintf("grainmesh: %s (code %d)", e.Msg, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the code of the first *Error in err's chain, 0 for a nil
// error and CodeIO for any other error.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeIO
}
