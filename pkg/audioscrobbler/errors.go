package audioscrobbler

import (
	"errors"
	"fmt"
)

// Error is an error document returned by the service.
type Error struct {
	Code    int    // API error code
	Message string // Error message from the service
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("audioscrobbler: error %d: %s", e.Code, e.Message)
}

// Is makes errors.Is match any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Class returns how callers should react to the error code.
func (e *Error) Class() Class {
	switch e.Code {
	case ErrCodeAuthenticationFailed, ErrCodeInvalidSessionKey, ErrCodeInvalidAPIKey, ErrCodeSuspendedAPIKey:
		return ClassAuth
	case ErrCodeUnavailable, ErrCodeOperationFailed, ErrCodeServiceOffline, ErrCodeTempUnavailable, ErrCodeRateLimitExceeded:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// Temporary reports whether the same request may succeed later.
func (e *Error) Temporary() bool {
	return e.Class() == ClassTransient
}

// TransportError wraps a failure to complete the HTTP exchange: DNS,
// connection, TLS, timeouts, or a server error without an error document.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("audioscrobbler: transport: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("audioscrobbler: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that could not be decoded.
type ParseError struct {
	Method string
	Body   []byte
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("audioscrobbler: failed to parse %s response: %v", e.Method, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Class groups errors by the action a caller should take.
type Class int

const (
	// ClassNone is returned for a nil error.
	ClassNone Class = iota
	// ClassAuth means the credentials are unusable; stop using the endpoint.
	ClassAuth
	// ClassTransient means the request may be retried later unchanged.
	ClassTransient
	// ClassPermanent means the request will never succeed; drop it.
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassAuth:
		return "auth"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classify maps any error returned by this package to a Class. Transport
// and parse failures are transient; request-building errors are permanent.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Class()
	}

	var transportErr *TransportError
	var parseErr *ParseError
	if errors.As(err, &transportErr) || errors.As(err, &parseErr) {
		return ClassTransient
	}

	return ClassPermanent
}

// API error codes.
const (
	ErrCodeUnavailable          = 1
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeSubscribersOnly      = 12
	ErrCodeInvalidSignature     = 13
	ErrCodeUnauthorizedToken    = 14
	ErrCodeExpiredToken         = 15
	ErrCodeTempUnavailable      = 16
	ErrCodeSuspendedAPIKey      = 26
	ErrCodeRateLimitExceeded    = 29
)

// Predefined errors for common cases.
var (
	// ErrNoSessionKey is returned when an operation requires authentication
	// but the credentials carry no session key.
	ErrNoSessionKey = errors.New("audioscrobbler: session key required")

	// ErrNoToken is returned when a session is requested without a token.
	ErrNoToken = errors.New("audioscrobbler: token required")

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("audioscrobbler: invalid configuration")

	// ErrInvalidRequest is returned when request fields fail validation.
	ErrInvalidRequest = errors.New("audioscrobbler: invalid request")
)
