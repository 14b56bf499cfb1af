package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrAuth   = errors.New("auth error")
	ErrFetch  = errors.New("fetch error")
	ErrSink   = errors.New("sink error")
	ErrConfig = errors.New("config error")
)

// Error attaches a kind and the failing operation to an underlying error.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func AuthError(op string, err error) error {
	return &Error{Kind: ErrAuth, Op: op, Err: err}
}

func FetchError(op string, err error) error {
	return &Error{Kind: ErrFetch, Op: op, Err: err}
}

func SinkError(op string, err error) error {
	return &Error{Kind: ErrSink, Op: op, Err: err}
}

func ConfigError(op string, err error) error {
	return &Error{Kind: ErrConfig, Op: op, Err: err}
}
