package model

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound   = stderrors.New("not found")
	ErrBadRequest = stderrors.New("bad request")
	ErrConflict   = stderrors.New("conflict")
)

// NotFound returns an error wrapping ErrNotFound with a stack.
func NotFound(format string, args ...any) error {
	return errors.Wrap(ErrNotFound, fmt.Sprintf(format, args...))
}

// BadRequest returns an error wrapping ErrBadRequest with a stack.
func BadRequest(format string, args ...any) error {
	return errors.Wrap(ErrBadRequest, fmt.Sprintf(format, args...))
}

// Conflict wraps cause as a persistence conflict. The cause stays reachable through errors.Is/As.
func Conflict(cause error, format string, args ...any) error {
	return &conflictError{msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

type conflictError struct {
	msg   string
	cause error
}

func (e *conflictError) Error() string {
	if e.cause == nil {
		return e.msg + ": " + ErrConflict.Error()
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *conflictError) Is(target error) bool { return target == ErrConflict }

func (e *conflictError) Unwrap() error { return e.cause }

func IsNotFound(err error) bool   { return stderrors.Is(err, ErrNotFound) }
func IsBadRequest(err error) bool { return stderrors.Is(err, ErrBadRequest) }
func IsConflict(err error) bool   { return stderrors.Is(err, ErrConflict) }
