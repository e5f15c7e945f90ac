package indielogin

import (
	"net/url"
	"strings"
	"time"
)

// PendingLogin is everything remembered between sending a user to their
// authorization endpoint and them coming back. Keep at most one per session,
// and forget it as soon as a callback arrives.
type PendingLogin struct {
	Me                    string
	State                 string
	AuthorizationEndpoint string
	TokenEndpoint         string
	MicropubEndpoint      string
	ExpiresAt             time.Time
}

// NewPendingLogin records a sign-in for me that stops being valid at expires.
// A zero expires never expires.
func NewPendingLogin(me, state string, endpoints Endpoints, expires time.Time) PendingLogin {
	return PendingLogin{
		Me:                    me,
		State:                 state,
		AuthorizationEndpoint: endpoints.AuthorizationString(),
		TokenEndpoint:         endpoints.TokenString(),
		MicropubEndpoint:      endpoints.MicropubString(),
		ExpiresAt:             expires,
	}
}

// Expired reports whether the pending sign-in is too old to finish.
func (p PendingLogin) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// VerifyCallback checks the parameters of a callback against pending and
// returns the authorization code. The checks run in order and the first that
// fails is returned:
//
//   - ErrNoPendingState, pending is nil or has no state
//   - ErrMissingCode, there is no code or it is blank
//   - ErrMissingState, there is no state parameter
//   - ErrStateMismatch, the state parameter is not pending.State
//   - ErrMissingPendingMe, pending has no me or has expired
func VerifyCallback(pending *PendingLogin, params url.Values, now time.Time) (string, error) {
	if pending == nil || pending.State == "" {
		return "", ErrNoPendingState
	}

	code := strings.TrimSpace(params.Get("code"))
	if code == "" {
		return "", ErrMissingCode
	}

	states, ok := params["state"]
	if !ok || len(states) == 0 {
		return "", ErrMissingState
	}

	if !VerifyState(pending.State, states[0]) {
		return "", ErrStateMismatch
	}

	if pending.Me == "" || pending.Expired(now) {
		return "", ErrMissingPendingMe
	}

	return code, nil
}

// CheckIdentity makes sure a grant is for the host that started signing in. A
// nil grant has nothing to check.
func CheckIdentity(attemptedMe string, grant *Grant) error {
	if grant == nil {
		return nil
	}

	if !HostMatches(grant.Me, attemptedMe) {
		return ErrIdentityMismatch
	}

	return nil
}
