// Package login runs the whole sign-in flow for a Micropub client: starting,
// handling the callback, signing out and resetting stored credentials.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"hawx.me/code/indielogin"
	"hawx.me/code/indielogin/micropub"
	"hawx.me/code/indielogin/replay"
	"hawx.me/code/indielogin/sessions"
	"hawx.me/code/indielogin/users"
)

// DefaultScope is requested when nothing else is configured.
const DefaultScope = "create update media"

// ConfigFetcher asks a Micropub endpoint for its configuration.
type ConfigFetcher interface {
	Config(ctx context.Context, endpoint, token string) (*micropub.Config, error)
}

// Service signs users in. Client and Users are required, everything else may
// be left as the zero value.
type Service struct {
	Client   *indielogin.Client
	Users    users.Store
	Guard    replay.Guard
	Micropub ConfigFetcher
	Metrics  *Metrics
	Logger   zerolog.Logger

	// Scope is requested from new users, DefaultScope if empty.
	Scope string

	// PendingTTL is how long a user has to finish signing in, 10 minutes if
	// zero.
	PendingTTL time.Duration

	// Now is used instead of time.Now when set.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

func (s *Service) scope() string {
	if s.Scope == "" {
		return DefaultScope
	}

	return s.Scope
}

func (s *Service) pendingTTL() time.Duration {
	if s.PendingTTL <= 0 {
		return 10 * time.Minute
	}

	return s.PendingTTL
}

// StartOptions are the optional parameters to /auth/start.
type StartOptions struct {
	// DontAsk sends a user with a stored record straight to their
	// authorization endpoint with the scope they granted last time.
	DontAsk bool

	// Restart stops a returning user skipping the start page.
	Restart bool
}

// Start describes how to continue a sign-in.
type Start struct {
	Me        string
	Endpoints indielogin.Endpoints

	// DiscoveryErr is set when the endpoints could not all be found.
	DiscoveryErr error

	// Pending should be kept in the session until the callback.
	Pending indielogin.PendingLogin

	// AuthorizationURL is nil when there is no authorization endpoint.
	AuthorizationURL *indielogin.AuthorizationURL

	// Immediate is true when the user should be redirected to AuthorizationURL
	// without being shown the start page, and should not be asked again after
	// the callback.
	Immediate bool
}

// Begin starts signing in as rawMe. ErrInvalidMe is returned if rawMe is not a
// profile URL. Failing to find endpoints is not an error, it is reported in
// DiscoveryErr so it can be shown on the start page.
func (s *Service) Begin(ctx context.Context, rawMe string, opts StartOptions) (*Start, error) {
	me, err := indielogin.NormalizeMe(rawMe)
	if err != nil {
		s.Metrics.start("invalid_me")
		return nil, err
	}

	log := s.Logger.With().Str("me", me).Logger()

	endpoints, discoveryErr := s.Client.FindEndpoints(ctx, me)
	if discoveryErr != nil {
		log.Info().Err(discoveryErr).Msg("discovery incomplete")
	}

	state, err := indielogin.NewState()
	if err != nil {
		return nil, err
	}

	start := &Start{
		Me:           me,
		Endpoints:    endpoints,
		DiscoveryErr: discoveryErr,
		Pending:      indielogin.NewPendingLogin(me, state, endpoints, s.now().Add(s.pendingTTL())),
	}

	if endpoints.Authorization == nil {
		s.Metrics.start("missing_endpoint")
		return start, nil
	}

	start.AuthorizationURL = s.Client.AuthorizationURL(endpoints.Authorization, me, state, s.scope())

	user, err := s.Users.FindByURL(ctx, me)
	if errors.Is(err, users.ErrNotFound) {
		user = nil
	} else if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}

	if user != nil && user.HasToken() && sameEndpoints(user, endpoints) && !opts.Restart {
		log.Debug().Msg("returning user, skipping start page")
		start.AuthorizationURL = start.AuthorizationURL.WithScope(user.Scope)
		start.Immediate = true
		s.Metrics.start("returning")
		return start, nil
	}

	// dontask only means something for someone who has signed in before
	if opts.DontAsk && user != nil {
		scope := user.Scope
		if scope == "" {
			scope = s.scope()
		}

		start.AuthorizationURL = start.AuthorizationURL.WithScope(scope)
		start.Immediate = true
		s.Metrics.start("dontask")
		return start, nil
	}

	s.Metrics.start("confirm")
	return start, nil
}

func sameEndpoints(user *users.User, endpoints indielogin.Endpoints) bool {
	return user.AuthorizationEndpoint == endpoints.AuthorizationString() &&
		user.TokenEndpoint == endpoints.TokenString() &&
		user.MicropubEndpoint == endpoints.MicropubString()
}

// Result is the outcome of a callback that got as far as the token endpoint.
type Result struct {
	// Me is who signed in, as returned by the token endpoint, or the URL that
	// was attempted when there was no grant.
	Me string

	TokenEndpoint string
	Response      *indielogin.TokenResponse

	// User is nil unless the token endpoint granted a token.
	User *users.User

	// HadToken is true when User already had an access token before this
	// sign-in.
	HadToken bool
}

// Finish checks a callback against pending and swaps the code for a token. The
// caller must forget pending whatever is returned.
//
// When the token endpoint fails both a Result, holding what the endpoint
// said, and an *indielogin.ExchangeError are returned.
func (s *Service) Finish(ctx context.Context, pending *indielogin.PendingLogin, params url.Values) (*Result, error) {
	code, err := indielogin.VerifyCallback(pending, params, s.now())
	if err != nil {
		return nil, err
	}

	if s.Guard != nil {
		fresh, err := s.Guard.Consume(ctx, pending.State)
		if err != nil {
			return nil, fmt.Errorf("consuming state: %w", err)
		}
		if !fresh {
			return nil, indielogin.ErrStateMismatch
		}
	}

	started := time.Now()
	resp, err := s.Client.Exchange(ctx, pending.TokenEndpoint, code, pending.Me)
	s.Metrics.observeExchange(started)
	if err != nil {
		return &Result{Me: pending.Me, TokenEndpoint: pending.TokenEndpoint, Response: resp}, err
	}

	if err := indielogin.CheckIdentity(pending.Me, resp.Grant); err != nil {
		s.Logger.Warn().Str("me", pending.Me).Str("returned", resp.Grant.Me).Msg("token endpoint returned a different host")
		return nil, err
	}

	return s.Complete(ctx, pending, resp)
}

// Complete stores the credentials in resp for the user. If resp has no grant
// nothing is stored.
func (s *Service) Complete(ctx context.Context, pending *indielogin.PendingLogin, resp *indielogin.TokenResponse) (*Result, error) {
	result := &Result{
		Me:            pending.Me,
		TokenEndpoint: pending.TokenEndpoint,
		Response:      resp,
	}

	if resp == nil || resp.Grant == nil {
		return result, nil
	}

	grant := resp.Grant
	me := grant.Me
	if normalized, err := indielogin.NormalizeMe(me); err == nil {
		me = normalized
	}
	result.Me = me

	now := s.now()
	user, err := s.Users.FindByURL(ctx, me)
	switch {
	case errors.Is(err, users.ErrNotFound):
		user, err = s.Users.Create(ctx, me, now)
		if err != nil {
			return nil, fmt.Errorf("creating user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("finding user: %w", err)
	default:
		user.LastLogin = now
		result.HadToken = user.HasToken()
	}

	user.AuthorizationEndpoint = pending.AuthorizationEndpoint
	user.TokenEndpoint = pending.TokenEndpoint
	user.MicropubEndpoint = pending.MicropubEndpoint
	user.AccessToken = grant.AccessToken
	user.Scope = grant.Scope()
	user.TokenResponse = resp.Raw

	if err := s.Users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}

	s.Logger.Info().Str("me", me).Str("user", user.ID).Bool("returning", result.HadToken).Msg("signed in")
	_ = s.fetchConfig(ctx, user)

	result.User = user
	return result, nil
}

// fetchConfig stores the media endpoint and syndication targets for user.
// Failures are kept in ConfigError so that RefreshConfig can try again later.
func (s *Service) fetchConfig(ctx context.Context, user *users.User) error {
	if s.Micropub == nil || user.MicropubEndpoint == "" {
		return nil
	}

	config, err := s.Micropub.Config(ctx, user.MicropubEndpoint, user.AccessToken)
	if err != nil {
		s.Logger.Warn().Err(err).Str("me", user.URL).Msg("could not fetch micropub config")
		s.Metrics.bestEffortFailed("micropub_config")
		user.ConfigError = err.Error()
	} else {
		user.MicropubMediaEndpoint = config.MediaEndpoint
		user.SyndicationTargets = string(config.RawSyndicateTo)
		user.ConfigError = ""
	}

	if saveErr := s.Users.Save(ctx, user); saveErr != nil {
		s.Logger.Warn().Err(saveErr).Str("me", user.URL).Msg("could not save micropub config")
	}

	return err
}

// RefreshConfig fetches the Micropub configuration again for a user whose
// last attempt failed. Users without a failure are returned unchanged.
func (s *Service) RefreshConfig(ctx context.Context, userID string) (*users.User, error) {
	user, err := s.Users.Find(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.ConfigError == "" || !user.HasToken() {
		return user, nil
	}

	return user, s.fetchConfig(ctx, user)
}

// Reset revokes the user's token and forgets their credentials. The
// credentials are forgotten even if revoking fails.
func (s *Service) Reset(ctx context.Context, userID string) error {
	user, err := s.Users.Find(ctx, userID)
	if err != nil {
		return err
	}

	if user.HasToken() {
		if err := s.Client.Revoke(ctx, user.TokenEndpoint, user.AccessToken); err != nil {
			s.Logger.Warn().Err(err).Str("me", user.URL).Msg("could not revoke token")
			s.Metrics.bestEffortFailed("revoke")
		}
	}

	user.ClearCredentials()
	if err := s.Users.Save(ctx, user); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}

	s.Metrics.reset()
	return nil
}

// ComposePath is where users go after signing in if nowhere else was asked
// for.
const ComposePath = "/new"

// Destination returns where to send a user after signing in and removes the
// values it used from state. A stored redirect wins, otherwise it is the
// compose page with any stored reply.
func Destination(state *sessions.State) string {
	if state.Redirect != "" {
		dest := state.Redirect
		state.Redirect = ""
		state.Reply = ""
		return dest
	}

	if state.Reply == "" {
		return ComposePath
	}

	dest := ComposePath + "?" + url.Values{"reply": {state.Reply}}.Encode()
	state.Reply = ""
	return dest
}

// localPath reports whether p is a path on this site, so that it can be used
// as a redirect.
func localPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
