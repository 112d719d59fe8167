// Package coreerr defines the typed error kinds the core returns to its
// collaborators. The core never constructs HTTP responses; it only ever
// returns an *Error, and the HTTP layer maps Kind to a status code and
// Code to a machine-readable body.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind is the coarse classification a collaborator maps to a status code.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindUnauthenticated Kind = "unauthenticated"
	KindConflict       Kind = "conflict"
	KindValidation     Kind = "validation"
	KindSchemaViolation Kind = "schema_violation"
	KindInternal       Kind = "internal"
)

// Code is a stable, specific machine-readable reason within a Kind.
type Code string

const (
	CodeTypeNotFound          Code = "type_not_found"
	CodeNotFound              Code = "not_found"
	CodeNoPathFound           Code = "no_path_found"
	CodeNoWrite               Code = "no_write"
	CodeAlreadyDeleted        Code = "already_deleted"
	CodeNotDeleted            Code = "not_deleted"
	CodeEntityDeleted         Code = "entity_deleted_cannot_update"
	CodeConcurrentModification Code = "concurrent_modification"
	CodeTypeInUse             Code = "type_in_use"
	CodeEmailInUse            Code = "email_in_use"
	CodeGroupNotEmpty         Code = "group_not_empty"
	CodeGroupInUse            Code = "group_in_use"
	CodeCycleDetected         Code = "cycle_detected"
	CodeInvalidUUID           Code = "invalid_uuid"
	CodeInvalidPath           Code = "invalid_path"
	CodePathTooDeep           Code = "path_too_deep"
	CodeUnknownOperator       Code = "unknown_operator"
	CodeFilterTooDeep         Code = "filter_too_deep"
	CodeInvalidAclPrincipals  Code = "invalid_acl_principals"
	CodeInvalidFields         Code = "invalid_fields"
	CodePropertiesFailSchema  Code = "properties_fail_schema"
)

// Error is the typed error every core operation returns on failure.
type Error struct {
	Kind Kind
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with the given kind, code, and formatted message.
func New(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that carries an underlying cause.
func Wrap(kind Kind, code Code, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// HasCode reports whether err is an *Error carrying the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Convenience constructors for commonly returned error conditions.

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, CodeNotFound, format, args...)
}

func TypeNotFound(format string, args ...any) *Error {
	return New(KindNotFound, CodeTypeNotFound, format, args...)
}

func Forbidden(code Code, format string, args ...any) *Error {
	return New(KindForbidden, code, format, args...)
}

func Unauthenticated(format string, args ...any) *Error {
	return New(KindUnauthenticated, CodeNoWrite, format, args...)
}

func Conflict(code Code, format string, args ...any) *Error {
	return New(KindConflict, code, format, args...)
}

func Validation(code Code, format string, args ...any) *Error {
	return New(KindValidation, code, format, args...)
}

func SchemaViolation(format string, args ...any) *Error {
	return New(KindSchemaViolation, CodePropertiesFailSchema, format, args...)
}

// Internal wraps err as an internal error. It always returns a non-nil
// *Error; err may be nil when there is no underlying cause, in which case
// only the formatted message is carried.
func Internal(err error, format string, args ...any) *Error {
	return Wrap(KindInternal, "", err, format, args...)
}
