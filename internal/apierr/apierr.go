// Package apierr carries errors from the service layer to the HTTP edge.
// Code is the contract: clients and the test suite match on the snake_case
// code (see the Code* constants in services), never on the message, so
// messages may change freely while codes stay stable. Status only picks
// the HTTP response class.
package apierr

import "fmt"

// Error pairs a stable machine-readable code with an HTTP status and an
// optional wrapped cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
