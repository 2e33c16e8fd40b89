// Package errors carries the API error codes and how each one is rendered.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	CodeEmptyCart           Code = "EMPTY_CART"
	CodeInvalidCoupon       Code = "INVALID_COUPON"
	CodeSignatureInvalid    Code = "SIGNATURE_INVALID"
	CodeInventoryAdjustment Code = "INVENTORY_ADJUSTMENT_FAILED"
)

// Metadata describes how a code reaches clients.
// When ShowMessage is set the error's own message replaces PublicMessage.
type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	ShowMessage    bool
	DetailsAllowed bool
	Retryable      bool
}

var catalog = map[Code]Metadata{
	CodeValidation:          {http.StatusBadRequest, "validation failed", true, true, false},
	CodeUnauthorized:        {http.StatusUnauthorized, "authentication required", true, false, false},
	CodeForbidden:           {http.StatusForbidden, "access denied", true, false, false},
	CodeNotFound:            {http.StatusNotFound, "resource not found", true, false, false},
	CodeConflict:            {http.StatusConflict, "conflict detected", true, false, false},
	CodeIdempotency:         {http.StatusConflict, "idempotency key reused", true, true, false},
	CodeRateLimit:           {http.StatusTooManyRequests, "rate limit exceeded", true, false, false},
	CodeInternal:            {http.StatusInternalServerError, "internal server error", false, false, true},
	CodeDependency:          {http.StatusServiceUnavailable, "dependency unavailable", false, true, true},
	CodeEmptyCart:           {http.StatusUnprocessableEntity, "cart is empty", true, false, false},
	CodeInvalidCoupon:       {http.StatusUnprocessableEntity, "coupon cannot be applied", true, true, false},
	CodeSignatureInvalid:    {http.StatusBadRequest, "signature verification failed", false, false, false},
	CodeInventoryAdjustment: {http.StatusInternalServerError, "inventory adjustment failed", false, false, true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}

// Error is a coded error with an optional cause and client-visible details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
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

// WithDetails attaches details in place and returns e.
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

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the outermost *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	return As(err).Code()
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
