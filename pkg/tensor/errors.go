package tensor

import (
	"errors"
	"fmt"
)

// Kind classifies model errors.
type Kind string

const (
	KindShape   Kind = "ERR_SHAPE"
	KindNumeric Kind = "ERR_NUMERIC"
	KindConfig  Kind = "ERR_CONFIG"
)

// Sentinels for errors.Is matching.
var (
	ErrShape   = &Error{Kind: KindShape, Msg: "shape mismatch"}
	ErrNumeric = &Error{Kind: KindNumeric, Msg: "numeric degeneracy"}
	ErrConfig  = &Error{Kind: KindConfig, Msg: "invalid configuration"}
)

// Error is a local, non-retryable failure of a model operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Op != "" {
		s += " " + e.Op
	}
	s += ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Shapef creates a ShapeError.
func Shapef(op, format string, a ...interface{}) error {
	return &Error{Kind: KindShape, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// Numericf creates a NumericDegeneracy error.
func Numericf(op, format string, a ...interface{}) error {
	return &Error{Kind: KindNumeric, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// Configf creates a ConfigurationError.
func Configf(op, format string, a ...interface{}) error {
	return &Error{Kind: KindConfig, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// KindOf returns the Kind of err, or "" if err is not a model error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
