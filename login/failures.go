package login

import (
	"errors"
	"net/http"

	"hawx.me/code/indielogin"
)

// failure is what is shown to the user when signing in goes wrong.
type failure struct {
	Status      int
	Title       string
	Error       string
	Description string

	// Security is set for failures that suggest someone is tampering with the
	// sign-in.
	Security bool
}

func (f failure) data() map[string]any {
	return map[string]any{
		"title":            f.Title,
		"error":            f.Error,
		"errorDescription": f.Description,
		"security":         f.Security,
	}
}

func invalidMe(me string) failure {
	return failure{
		Status:      http.StatusBadRequest,
		Title:       "Sign In",
		Error:       `Invalid "me" Parameter`,
		Description: `The URL you entered, "` + me + `" is not valid.`,
	}
}

func callbackFailure(err error, me string) failure {
	f := failure{
		Status:   http.StatusBadRequest,
		Title:    "Auth Callback",
		Security: indielogin.IsSecurityError(err),
	}

	switch {
	case errors.Is(err, indielogin.ErrNoPendingState):
		f.Error = "Missing session state"
		f.Description = "Something went wrong, please try signing in again, and make sure cookies are enabled for this domain."
	case errors.Is(err, indielogin.ErrMissingCode):
		f.Error = "Missing authorization code"
		f.Description = "No authorization code was provided in the request."
	case errors.Is(err, indielogin.ErrMissingState):
		f.Error = "Missing state parameter"
		f.Description = `No state parameter was provided in the request. This shouldn't happen. It is possible this is a malicious authorization attempt, or your authorization server failed to pass back the "state" parameter.`
	case errors.Is(err, indielogin.ErrStateMismatch):
		f.Error = "Invalid state"
		f.Description = "The state parameter provided did not match the state provided at the start of authorization. This is most likely caused by a malicious authorization attempt."
	case errors.Is(err, indielogin.ErrMissingPendingMe):
		f.Error = "Missing data"
		f.Description = "We forgot who was logging in. It's possible you took too long to finish signing in, or something got mixed up by signing in in another tab."
	case errors.Is(err, indielogin.ErrIdentityMismatch):
		f.Title = "Error Signing In"
		f.Error = "Invalid user"
		f.Description = "The user URL that was returned from the token endpoint did not match the domain of the user signing in (" + me + ")."
	default:
		return internalFailure(f.Title)
	}

	return f
}

func internalFailure(title string) failure {
	return failure{
		Status:      http.StatusInternalServerError,
		Title:       title,
		Error:       "Something went wrong",
		Description: "Your request could not be completed, please try again.",
	}
}

// callbackLabel names err for metrics.
func callbackLabel(err error) string {
	switch {
	case errors.Is(err, indielogin.ErrNoPendingState):
		return "no_pending_state"
	case errors.Is(err, indielogin.ErrMissingCode):
		return "missing_code"
	case errors.Is(err, indielogin.ErrMissingState):
		return "missing_state"
	case errors.Is(err, indielogin.ErrStateMismatch):
		return "state_mismatch"
	case errors.Is(err, indielogin.ErrMissingPendingMe):
		return "missing_pending_me"
	case errors.Is(err, indielogin.ErrIdentityMismatch):
		return "identity_mismatch"
	default:
		return "error"
	}
}
