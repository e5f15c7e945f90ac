// Package sessions keeps the sign-in state for a user agent in a cookie.
//
// This is a wrapper for gorilla/sessions. Everything is kept as one State
// value which is read with Load, changed, and written back with Save.
package sessions

import (
	"encoding/base64"
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"hawx.me/code/indielogin"
)

const (
	sessionName = "session"
	stateKey    = "state"
)

// State is everything known about the user agent.
type State struct {
	// Pending is the sign-in in progress, if any.
	Pending *indielogin.PendingLogin

	// Redirect is where to go after signing in, when asked for at the start.
	Redirect string

	// Reply is passed on to the compose page after signing in.
	Reply string

	// DontAsk skips the confirmation page after the callback.
	DontAsk bool

	// Me and UserID are set once signed in.
	Me     string
	UserID string
}

// SignedIn reports whether the state belongs to a signed in user.
func (s State) SignedIn() bool {
	return s.Me != "" && s.UserID != ""
}

// ClearPending forgets the sign-in in progress.
func (s *State) ClearPending() {
	s.Pending = nil
}

// SignOut forgets who is signed in along with any sign-in in progress.
func (s *State) SignOut() {
	s.Me = ""
	s.UserID = ""
	s.Pending = nil
}

func init() {
	gob.Register(State{})
}

// Sessions reads and writes State.
type Sessions struct {
	store sessions.Store
}

// Options configure the cookie.
type Options struct {
	// Secure marks the cookie to only be sent over https.
	Secure bool

	// MaxAge is how long the cookie lasts in seconds, 0 means until the browser
	// closes.
	MaxAge int
}

// New creates a new session handler that uses cookies to store the State. The
// secret should be 32 or 64 bytes base64 encoded.
func New(secret string, opts Options) (*Sessions, error) {
	byteSecret, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(byteSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Sessions{store: store}, nil
}

// NewWithStore uses an existing gorilla store.
func NewWithStore(store sessions.Store) *Sessions {
	return &Sessions{store: store}
}

// Load returns the State for the request. A missing or unreadable cookie is
// an empty State.
func (s *Sessions) Load(r *http.Request) State {
	session, _ := s.store.Get(r, sessionName)
	if session == nil {
		return State{}
	}

	state, _ := session.Values[stateKey].(State)

	return state
}

// Save replaces the State for the user agent.
func (s *Sessions) Save(w http.ResponseWriter, r *http.Request, state State) error {
	session, _ := s.store.Get(r, sessionName)
	if session == nil {
		session = sessions.NewSession(s.store, sessionName)
	}
	session.Values = map[interface{}]interface{}{
		stateKey: state,
	}

	return session.Save(r, w)
}
