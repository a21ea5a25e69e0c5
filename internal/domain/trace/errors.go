package trace

import (
	"errors"
	"fmt"
)

// ErrTracker is the root of every tracker error kind.
var ErrTracker = errors.New("tracker error")

// Sentinel kinds. Use errors.Is against these or ErrTracker.
var (
	ErrTrace          = errors.New("malformed trace")
	ErrVerb           = errors.New("unknown verb")
	ErrTarget         = errors.New("invalid target")
	ErrKeyExtension   = errors.New("invalid extension key")
	ErrValueExtension = errors.New("invalid extension value")
	ErrUnmarshalling  = errors.New("unmarshalling failed")
	ErrXAPI           = errors.New("xapi encoding failed")
)

// Error carries the operation and kind of a validation or codec failure.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

// NewKind builds an *Error for op with the given kind and message.
func NewKind(op string, kind error, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// WrapKind wraps err under kind for op.
func WrapKind(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Kind.Error()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Is reports every *Error as an ErrTracker.
func (e *Error) Is(target error) bool {
	return target == ErrTracker
}

func errorf(op string, kind error, format string, args ...any) *Error {
	return NewKind(op, kind, fmt.Sprintf(format, args...))
}
