package indielogin

import (
	"errors"
	"fmt"
)

// RequestError is returned when a remote endpoint answers with something other
// than what was expected.
type RequestError struct {
	URL        string
	StatusCode int
	MediaType  string
	Body       []byte
}

func (e *RequestError) Error() string {
	if e.MediaType == "" {
		return fmt.Sprintf("received a %d response from %s", e.StatusCode, e.URL)
	}

	return fmt.Sprintf("received a %d (%s) response from %s", e.StatusCode, e.MediaType, e.URL)
}

// ExchangeError explains why an authorization code could not be swapped for
// an access token. Message is suitable for showing to the user.
type ExchangeError struct {
	Message string
	Err     error
}

func (e *ExchangeError) Error() string {
	if e.Err == nil {
		return e.Message
	}

	return e.Message + ": " + e.Err.Error()
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

type clientError int

func (e clientError) Error() string {
	switch e {
	case ErrInvalidMe:
		return "me is not a valid http or https URL"
	case ErrAuthorizationEndpointMissing:
		return "no authorization endpoint found"
	case ErrNoPendingState:
		return "no sign-in is in progress"
	case ErrMissingCode:
		return "callback is missing the code parameter"
	case ErrMissingState:
		return "callback is missing the state parameter"
	case ErrStateMismatch:
		return "callback state does not match"
	case ErrMissingPendingMe:
		return "sign-in in progress has no me"
	case ErrIdentityMismatch:
		return "me returned by the token endpoint is on a different host"
	default:
		panic("missing error definition")
	}
}

const (
	// ErrInvalidMe means the entered profile URL could not be normalized.
	ErrInvalidMe clientError = iota

	// ErrAuthorizationEndpointMissing means an authorization endpoint could not
	// be found for the entered 'me'.
	ErrAuthorizationEndpointMissing

	// ErrNoPendingState means a callback arrived but the session holds no state.
	ErrNoPendingState

	// ErrMissingCode means the callback had no code, or a blank one.
	ErrMissingCode

	// ErrMissingState means the callback had no state parameter at all.
	ErrMissingState

	// ErrStateMismatch means the state in the callback is not the one issued,
	// or has already been used.
	ErrStateMismatch

	// ErrMissingPendingMe means the pending sign-in forgot who was signing in,
	// usually because it expired.
	ErrMissingPendingMe

	// ErrIdentityMismatch means the token endpoint returned a 'me' on another
	// host to the one that started signing in.
	ErrIdentityMismatch
)

// IsSecurityError reports whether err is one of the failures that suggest
// tampering, rather than a user who needs to try again.
func IsSecurityError(err error) bool {
	switch kindOf(err) {
	case ErrMissingState, ErrStateMismatch, ErrIdentityMismatch:
		return true
	default:
		return false
	}
}

func kindOf(err error) clientError {
	var kind clientError
	if errors.As(err, &kind) {
		return kind
	}

	return -1
}
