// Package users stores the people who have signed in, keyed by their profile
// URL.
package users

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no user matches.
var ErrNotFound = errors.New("user not found")

// User is the stored record for a profile URL. Values are copied in and out of
// a Store, so changing a User has no effect until it is passed to Save.
type User struct {
	ID  string
	URL string

	AuthorizationEndpoint string
	TokenEndpoint         string
	MicropubEndpoint      string
	MicropubMediaEndpoint string
	SyndicationTargets    string

	// ConfigError is why the Micropub configuration could not be fetched, empty
	// once it has been.
	ConfigError string

	AccessToken   string
	Scope         string
	TokenResponse string

	LastLogin time.Time
	CreatedAt time.Time
}

// HasToken reports whether the user has a Micropub access token.
func (u *User) HasToken() bool {
	return u.AccessToken != ""
}

// ClearCredentials blanks everything a reset should forget. The record itself
// is kept.
func (u *User) ClearCredentials() {
	u.AuthorizationEndpoint = ""
	u.TokenEndpoint = ""
	u.MicropubEndpoint = ""
	u.MicropubMediaEndpoint = ""
	u.SyndicationTargets = ""
	u.ConfigError = ""
	u.Scope = ""
	u.AccessToken = ""
	u.TokenResponse = ""
}

// Store persists users. Implementations must be safe for concurrent use; the
// last Save wins.
type Store interface {
	// Find returns the user with id, or ErrNotFound.
	Find(ctx context.Context, id string) (*User, error)

	// FindByURL returns the user for the profile url, or ErrNotFound.
	FindByURL(ctx context.Context, url string) (*User, error)

	// Create adds a new user for url with CreatedAt set to now.
	Create(ctx context.Context, url string, now time.Time) (*User, error)

	// Save replaces the stored user with u.
	Save(ctx context.Context, u *User) error
}
