package emitter

import (
	"errors"
	"fmt"
)

// Kind classifies a save_as_file failure.
type Kind string

const (
	KindArgument     Kind = "argument"
	KindPathSecurity Kind = "path-security"
	KindEncoding     Kind = "encoding"
	KindIO           Kind = "io"
)

var (
	ErrArgument     = errors.New("save_as_file: argument error")
	ErrPathSecurity = errors.New("save_as_file: path security error")
	ErrEncoding     = errors.New("save_as_file: encoding error")
	ErrIO           = errors.New("save_as_file: io error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindArgument:
		return ErrArgument
	case KindPathSecurity:
		return ErrPathSecurity
	case KindEncoding:
		return ErrEncoding
	case KindIO:
		return ErrIO
	default:
		return nil
	}
}

// Error is returned for every failed call. Use errors.Is with the Err*
// sentinels to branch on the kind, or errors.As to read the details.
type Error struct {
	Kind Kind
	// Field names the offending argument for KindArgument.
	Field string
	// Path is the caller-supplied path, when known.
	Path   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", FunctionName, e.Detail)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of a save_as_file error, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func argumentError(field string, err error) *Error {
	detail := fmt.Sprintf("requires a `%s` argument with a string value", field)
	if field == "base64" {
		detail = "`base64` argument must be a boolean"
	}
	return &Error{Kind: KindArgument, Field: field, Detail: detail, Err: err}
}

func pathError(path, detail string) *Error {
	return &Error{Kind: KindPathSecurity, Path: path, Detail: detail}
}

func encodingError(path string, err error) *Error {
	return &Error{Kind: KindEncoding, Path: path, Detail: "base64 decode failed", Err: err}
}

func ioError(path, detail string, err error) *Error {
	return &Error{Kind: KindIO, Path: path, Detail: detail, Err: err}
}
