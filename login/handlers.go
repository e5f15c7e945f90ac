package login

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"hawx.me/code/indielogin"
	"hawx.me/code/indielogin/sessions"
	"hawx.me/code/indielogin/users"
)

// Renderer writes the named page.
type Renderer interface {
	Render(w io.Writer, name string, data map[string]any) error
}

// Handler serves the sign-in routes.
type Handler struct {
	service  *Service
	sessions *sessions.Sessions
	views    Renderer
}

// NewHandler creates a Handler.
func NewHandler(service *Service, sessions *sessions.Sessions, views Renderer) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		views:    views,
	}
}

// Routes registers the sign-in routes with r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/auth/start", h.start)
	r.Get("/auth/redirect", h.redirect)
	r.Get("/auth/callback", h.callback)
	r.Get("/signout", h.signOut)
	r.Post("/auth/reset", h.reset)
	r.Get(ComposePath, h.compose)
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := h.views.Render(w, name, data); err != nil {
		h.service.Logger.Error().Err(err).Str("view", name).Msg("could not render")
	}
}

func (h *Handler) fail(w http.ResponseWriter, f failure) {
	h.render(w, f.Status, "auth_error", f.data())
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, state sessions.State) bool {
	if err := h.sessions.Save(w, r, state); err != nil {
		h.service.Logger.Error().Err(err).Msg("could not save session")
		h.fail(w, internalFailure("Sign In"))
		return false
	}

	return true
}

func truthy(v string) bool {
	return v != "" && v != "0" && v != "false"
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rawMe := query.Get("me")

	begin, err := h.service.Begin(r.Context(), rawMe, StartOptions{
		DontAsk: truthy(query.Get("dontask")),
		Restart: query.Has("restart"),
	})
	if errors.Is(err, indielogin.ErrInvalidMe) {
		h.fail(w, invalidMe(rawMe))
		return
	}
	if err != nil {
		h.service.Logger.Error().Err(err).Msg("could not start sign-in")
		h.fail(w, internalFailure("Sign In"))
		return
	}

	state := h.sessions.Load(r)
	if redirect := query.Get("redirect"); localPath(redirect) {
		state.Redirect = redirect
	}
	if reply := query.Get("reply"); reply != "" {
		state.Reply = reply
	}

	state.Pending = nil
	if begin.AuthorizationURL != nil {
		state.Pending = &begin.Pending
	}
	state.DontAsk = begin.Immediate

	if !h.save(w, r, state) {
		return
	}

	if begin.Immediate {
		http.Redirect(w, r, begin.AuthorizationURL.String(), http.StatusFound)
		return
	}

	data := map[string]any{
		"title":                 "Sign In",
		"me":                    begin.Me,
		"authorizationEndpoint": begin.Endpoints.AuthorizationString(),
		"tokenEndpoint":         begin.Endpoints.TokenString(),
		"micropubEndpoint":      begin.Endpoints.MicropubString(),
		"authorizationURL":      "",
		"scope":                 h.service.scope(),
	}
	if begin.AuthorizationURL != nil {
		data["authorizationURL"] = begin.AuthorizationURL.String()
	}
	if begin.DiscoveryErr != nil {
		data["discoveryError"] = begin.DiscoveryErr.Error()
	}

	h.render(w, http.StatusOK, "auth_start", data)
}

// redirect changes the scope of the pending authorization URL. Only URLs for
// the pending sign-in are accepted, so this cannot send users anywhere else.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := h.sessions.Load(r)

	authURL, err := indielogin.ParseAuthorizationURL(query.Get("authorization_url"))
	if err != nil || state.Pending == nil ||
		authURL.Endpoint() != state.Pending.AuthorizationEndpoint ||
		!indielogin.VerifyState(state.Pending.State, authURL.Get("state")) {
		h.fail(w, failure{
			Status:      http.StatusBadRequest,
			Title:       "Sign In",
			Error:       "Invalid authorization URL",
			Description: "The authorization URL does not belong to the sign-in in progress, please try signing in again.",
		})
		return
	}

	http.Redirect(w, r, authURL.WithScope(query.Get("scope")).String(), http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	state := h.sessions.Load(r)
	pending := state.Pending
	state.ClearPending()

	attempted := ""
	if pending != nil {
		attempted = pending.Me
	}

	result, err := h.service.Finish(r.Context(), pending, r.URL.Query())

	var exchangeErr *indielogin.ExchangeError
	if err != nil && !errors.As(err, &exchangeErr) {
		label := callbackLabel(err)
		h.service.Metrics.callback(label)
		if label == "error" {
			h.service.Logger.Error().Err(err).Str("me", attempted).Msg("callback failed")
		} else {
			h.service.Logger.Info().Err(err).Str("me", attempted).Str("reason", label).Msg("callback rejected")
		}

		if h.save(w, r, state) {
			h.fail(w, callbackFailure(err, attempted))
		}
		return
	}

	switch {
	case exchangeErr != nil:
		h.service.Metrics.callback("exchange_error")
	case result.User == nil:
		h.service.Metrics.callback("no_grant")
	default:
		h.service.Metrics.callback("signed_in")
		state.Me = result.Me
		state.UserID = result.User.ID
	}

	immediate := result.User != nil && result.HadToken && state.DontAsk
	state.DontAsk = false

	// the destination is kept for another attempt unless signed in
	var destination string
	if result.User != nil {
		destination = Destination(&state)
	} else {
		retry := state
		destination = Destination(&retry)
	}

	if !h.save(w, r, state) {
		return
	}

	if immediate {
		http.Redirect(w, r, destination, http.StatusFound)
		return
	}

	data := map[string]any{
		"title":         "Sign In",
		"me":            result.Me,
		"tokenEndpoint": result.TokenEndpoint,
		"grant":         result.Response.Grant,
		"response":      result.Response.Pretty(),
		"destination":   destination,
	}
	if exchangeErr != nil {
		data["exchangeError"] = exchangeErr.Error()
	}

	h.render(w, http.StatusOK, "auth_callback", data)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	state := h.sessions.Load(r)
	state.SignOut()

	if h.save(w, r, state) {
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	state := h.sessions.Load(r)

	if state.SignedIn() {
		err := h.service.Reset(r.Context(), state.UserID)
		if err != nil && !errors.Is(err, users.ErrNotFound) {
			h.service.Logger.Error().Err(err).Str("me", state.Me).Msg("could not reset credentials")
			h.fail(w, internalFailure("Reset"))
			return
		}

		state.SignOut()
		if !h.save(w, r, state) {
			return
		}
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// compose is where users land after signing in. A Micropub configuration that
// could not be fetched at sign-in is tried again here.
func (h *Handler) compose(w http.ResponseWriter, r *http.Request) {
	state := h.sessions.Load(r)
	if !state.SignedIn() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	data := map[string]any{
		"title": "indielogin",
		"me":    state.Me,
		"reply": r.URL.Query().Get("reply"),
	}

	if _, err := h.service.RefreshConfig(r.Context(), state.UserID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		h.service.Logger.Warn().Err(err).Str("me", state.Me).Msg("micropub config still unavailable")
		data["configError"] = "Could not load the configuration of your Micropub endpoint, media uploads and syndication may not work."
	}

	h.render(w, http.StatusOK, "index", data)
}
