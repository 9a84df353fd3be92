// Package apperr carries the error taxonomy shared by the printq services and
// translates it to HTTP and gRPC.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindUnavailable Kind = "unavailable"
	KindExternal    Kind = "external"
	KindTimeout     Kind = "timeout"
	KindInternal    Kind = "internal"
)

// Error is a classified failure. Two errors are considered the same by
// errors.Is when their codes match, so sentinel values can carry a detail.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of e with message replaced by detail.
func (e *Error) WithDetail(detail string) *Error {
	cp := *e
	cp.Message = detail
	return &cp
}

// Wrap returns a copy of e wrapping err.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// WithKind returns a copy of e reclassified as kind.
func (e *Error) WithKind(kind Kind) *Error {
	cp := *e
	cp.Kind = kind
	return &cp
}

func New(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string, err error) *Error {
	return New(KindValidation, code, message, err)
}

func Unavailable(code, message string, err error) *Error {
	return New(KindUnavailable, code, message, err)
}

func External(code, message string, err error) *Error {
	return New(KindExternal, code, message, err)
}

func Timeout(code, message string, err error) *Error {
	return New(KindTimeout, code, message, err)
}

func Internal(code, message string, err error) *Error {
	return New(KindInternal, code, message, err)
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf reports the code of err, "internal" for unclassified errors.
func CodeOf(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return "internal"
}
