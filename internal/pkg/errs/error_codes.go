/*
Package errs provides custom error types and application-level error code constants.

Codes identify a failure both in relay logs and in the JSON body returned to callers.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidJSONFormat indicates that the request body is not valid JSON for the target shape.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained data after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Delivery Errors
const (
	// ErrNotifyFieldsMissing indicates a notify call without a recipient or a message.
	ErrNotifyFieldsMissing = 2001

	// ErrNotifyMessageInvalid indicates a notify call whose message is not a JSON object.
	ErrNotifyMessageInvalid = 2002
)

// 3xxx: Session and Security Errors
const (
	// ErrNoSession indicates a connection handshake without any cookie header.
	ErrNoSession = 3001

	// ErrNoSessionToken indicates a cookie header that carries none of the session cookie names.
	ErrNoSessionToken = 3002

	// ErrInvalidSession indicates a session token that failed verification or carried no subject.
	ErrInvalidSession = 3003

	// ErrOriginNotAllowed indicates a browser connection from an origin outside the allow list.
	ErrOriginNotAllowed = 3004

	// ErrUnauthorized indicates a missing or wrong internal API key.
	ErrUnauthorized = 3010
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrServerConfig indicates the relay is missing configuration it needs to serve the request.
	ErrServerConfig = 5001
)
