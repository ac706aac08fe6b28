/*
Package errs provides custom error types and application-level error code constants.

This file defines CustomError, which carries a business code, a caller-facing message
and the HTTP status used when the error terminates a request.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chatify/internal/pkg/auth/session"
	"chatify/internal/pkg/logx"
)

// CustomError is the error structure returned to relay callers.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the caller-facing error description.
	Message string

	// Status is the HTTP status code used when this error ends a request.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError from a registered code. Optional details are applied
// printf-style when the message template has placeholders; for ErrUnknown the first
// detail may be the underlying error, which is logged. Unknown codes degrade to ErrUnknown.
// Templates without an explicit status answer 400.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("error code %d is not registered", code),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr
	if customErr.Status == 0 {
		customErr.Status = http.StatusBadRequest
	}

	switch {
	case len(details) == 0:
	case code == ErrUnknown:
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Error details ignored: message template has no placeholders.", "code", code)
	}

	return &customErr
}

// FromSession maps a handshake rejection from the session decoder onto its code.
// Anything unrecognized is treated as an invalid session.
func FromSession(err error) *CustomError {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return NewError(ErrNoSession)
	case errors.Is(err, session.ErrNoSessionToken):
		return NewError(ErrNoSessionToken)
	default:
		return NewError(ErrInvalidSession)
	}
}
