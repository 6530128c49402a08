/*
Package errs provides the application-level error codes and the CustomError
type used on the HTTP surface.

These codes identify specific business or system errors both inside the
server and toward clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates an unsupported Content-Type header.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed JSON request body.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates the request rate exceeded the configured limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Avatar and Object Storage Errors
const (
	// ErrAvatarTypeInvalid indicates an avatar upload with a disallowed file type.
	ErrAvatarTypeInvalid = 2101

	// ErrAvatarTooLarge indicates an avatar upload exceeding the size limit.
	ErrAvatarTooLarge = 2102

	// ErrFileStorageFailed indicates a failure talking to the object store.
	ErrFileStorageFailed = 2103
)

// 3xxx: Session and Security Errors
const (
	// ErrUnauthorized indicates a request without a valid session token.
	ErrUnauthorized = 3001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000

	// ErrStorageFailed indicates a failure persisting account state.
	ErrStorageFailed = 5001
)
