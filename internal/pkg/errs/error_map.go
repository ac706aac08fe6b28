/*
Package errs provides custom error types and application-level error code constants.

This file maps every code to its caller-facing message and HTTP status.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Invalid JSON body."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests, please try again later", Status: http.StatusTooManyRequests},

	// 2xxx: Delivery Errors
	ErrNotifyFieldsMissing:  {Code: ErrNotifyFieldsMissing, Message: "recipientId and message required"},
	ErrNotifyMessageInvalid: {Code: ErrNotifyMessageInvalid, Message: "message must be a JSON object"},

	// 3xxx: Session and Security Errors
	ErrNoSession:        {Code: ErrNoSession, Message: "Unauthorized - No session", Status: http.StatusUnauthorized},
	ErrNoSessionToken:   {Code: ErrNoSessionToken, Message: "Unauthorized - No session token", Status: http.StatusUnauthorized},
	ErrInvalidSession:   {Code: ErrInvalidSession, Message: "Unauthorized - Invalid session", Status: http.StatusUnauthorized},
	ErrOriginNotAllowed: {Code: ErrOriginNotAllowed, Message: "Origin not allowed", Status: http.StatusForbidden},
	ErrUnauthorized:     {Code: ErrUnauthorized, Message: "Unauthorized", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:      {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrServerConfig: {Code: ErrServerConfig, Message: "Server configuration error", Status: http.StatusInternalServerError},
}
