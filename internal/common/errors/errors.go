package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeDuplicate       Code = "DUPLICATE"
	CodeConstraint      Code = "CONSTRAINT_VIOLATION"
	CodeNotFound        Code = "NOT_FOUND"
	CodeStateConflict   Code = "STATE_CONFLICT"
	CodePersistence     Code = "PERSISTENCE_FAULT"
	CodeWorkerCancelled Code = "WORKER_CANCELLED"
	CodeDependency      Code = "DEPENDENCY_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Metadata says how a caller should treat an error with a given code.
type Metadata struct {
	Retryable     bool
	Fatal         bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:      {PublicMessage: "invalid input"},
	CodeDuplicate:       {PublicMessage: "already exists"},
	CodeConstraint:      {PublicMessage: "still referenced"},
	CodeNotFound:        {PublicMessage: "not found"},
	CodeStateConflict:   {PublicMessage: "state transition disallowed"},
	CodePersistence:     {Retryable: true, PublicMessage: "storage unavailable"},
	CodeWorkerCancelled: {Retryable: true, PublicMessage: "work interrupted"},
	CodeDependency:      {Retryable: true, PublicMessage: "dependency unavailable"},
	CodeInternal:        {Fatal: true, PublicMessage: "internal error"},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is lets errors.Is match two typed errors by code, so sentinels such as
// ErrPreparationInterrupted work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code && e.message == t.message
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether any typed error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		if typed, ok := err.(*Error); ok && typed.code == code {
			return true
		}
		err = stdErrors.Unwrap(err)
	}
	return false
}

// CodeOf returns the outermost typed code, or CodeInternal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}
