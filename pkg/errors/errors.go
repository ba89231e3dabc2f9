// Package errors is the typed error vocabulary shared by services and the
// HTTP layer. Every Code maps to one HTTP status, a failure Kind and a safe
// public message; handlers never choose a status themselves.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeEmptyCart          Code = "EMPTY_CART"
	CodeProductUnavailable Code = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodeDuplicateReview    Code = "DUPLICATE_REVIEW"
	CodeInvalidRating      Code = "INVALID_RATING"
	CodeOrderNotCancelable Code = "ORDER_NOT_CANCELLABLE"
)

// Kind groups codes into the failure classes callers branch on.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindInternal   Kind = "internal"
)

type Metadata struct {
	HTTPStatus     int
	Kind           Kind
	PublicMessage  string
	Retryable      bool
	DetailsAllowed bool
	// ExposeMessage lets the error's own message replace PublicMessage.
	ExposeMessage bool
}

const (
	retryable = 1 << iota
	details
	expose
)

func meta(status int, kind Kind, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Kind:           kind,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&details != 0,
		ExposeMessage:  flags&expose != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, KindValidation, "validation failed", details|expose),
	CodeUnauthorized:  meta(http.StatusUnauthorized, KindForbidden, "authentication required", expose),
	CodeForbidden:     meta(http.StatusForbidden, KindForbidden, "access denied", expose),
	CodeNotFound:      meta(http.StatusNotFound, KindNotFound, "resource not found", expose),
	CodeConflict:      meta(http.StatusConflict, KindConflict, "conflict detected", expose),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, KindConflict, "state transition disallowed", details|expose),
	CodeIdempotency:   meta(http.StatusConflict, KindConflict, "idempotency key reused", details|expose),
	CodeRateLimit:     meta(http.StatusTooManyRequests, KindForbidden, "rate limit exceeded", expose),
	CodeInternal:      meta(http.StatusInternalServerError, KindInternal, "internal server error", retryable),
	CodeDependency:    meta(http.StatusServiceUnavailable, KindInternal, "dependency unavailable", retryable|details),

	CodeEmptyCart:          meta(http.StatusBadRequest, KindConflict, "cart is empty", expose),
	CodeProductUnavailable: meta(http.StatusBadRequest, KindConflict, "product is not available", details|expose),
	CodeInsufficientStock:  meta(http.StatusBadRequest, KindConflict, "insufficient stock", details|expose),
	CodeDuplicateReview:    meta(http.StatusBadRequest, KindConflict, "product already reviewed", expose),
	CodeInvalidRating:      meta(http.StatusBadRequest, KindValidation, "rating must be between 1 and 5", details|expose),
	CodeOrderNotCancelable: meta(http.StatusBadRequest, KindConflict, "order cannot be cancelled", details|expose),
}

// MetadataFor falls back to INTERNAL_ERROR for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
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
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Kind() Kind {
	return MetadataFor(e.Code()).Kind
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
	if e != nil {
		e.details = details
	}
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

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf classifies any error; untyped errors are internal.
func KindOf(err error) Kind {
	if typed := As(err); typed != nil {
		return typed.Kind()
	}
	return KindInternal
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
