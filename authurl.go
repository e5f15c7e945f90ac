package indielogin

import (
	"errors"
	"net/url"
	"strings"
)

type param struct {
	key, value string
}

// AuthorizationURL is a URL at an authorization endpoint. Parameters keep the
// order they were added in, so the same inputs always give the same URL.
type AuthorizationURL struct {
	endpoint url.URL
	query    []param
}

// BuildAuthorizationURL creates the URL to send a user to so they can approve
// signing in. Any query already on endpoint is kept, ahead of the added
// parameters.
func BuildAuthorizationURL(endpoint *url.URL, me, redirectURI, clientID, state, scope string) *AuthorizationURL {
	a := &AuthorizationURL{endpoint: *endpoint}
	a.endpoint.RawQuery = ""
	a.endpoint.Fragment = ""
	a.query = splitQuery(endpoint.RawQuery)

	a.query = append(a.query,
		param{"response_type", "code"},
		param{"client_id", clientID},
		param{"redirect_uri", redirectURI},
		param{"scope", scope},
		param{"me", me},
		param{"state", state},
	)

	return a
}

// AuthorizationURL builds the URL for endpoint using the Client's ID and
// redirect.
func (c *Client) AuthorizationURL(endpoint *url.URL, me, state, scope string) *AuthorizationURL {
	return BuildAuthorizationURL(endpoint, me, c.RedirectURL, c.ClientID, state, scope)
}

// ParseAuthorizationURL reads back a URL produced by String.
func ParseAuthorizationURL(raw string) (*AuthorizationURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("authorization url must be an absolute http or https URL")
	}

	a := &AuthorizationURL{endpoint: *u}
	a.endpoint.RawQuery = ""
	a.endpoint.Fragment = ""
	a.query = splitQuery(u.RawQuery)

	return a, nil
}

// WithScope returns a copy of the URL requesting scope instead. The receiver
// is not changed.
func (a *AuthorizationURL) WithScope(scope string) *AuthorizationURL {
	b := &AuthorizationURL{
		endpoint: a.endpoint,
		query:    make([]param, 0, len(a.query)+1),
	}

	replaced := false
	for _, p := range a.query {
		if p.key == "scope" {
			if replaced {
				continue
			}
			p.value = scope
			replaced = true
		}
		b.query = append(b.query, p)
	}

	if !replaced {
		b.query = append(b.query, param{"scope", scope})
	}

	return b
}

// Get returns the first value for key, or "".
func (a *AuthorizationURL) Get(key string) string {
	for _, p := range a.query {
		if p.key == key {
			return p.value
		}
	}

	return ""
}

// Endpoint is the URL without any query.
func (a *AuthorizationURL) Endpoint() string {
	return a.endpoint.String()
}

func (a *AuthorizationURL) String() string {
	if len(a.query) == 0 {
		return a.endpoint.String()
	}

	var b strings.Builder
	for i, p := range a.query {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}

	u := a.endpoint
	u.RawQuery = b.String()
	return u.String()
}

func splitQuery(raw string) []param {
	var params []param

	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}

		params = append(params, param{key, value})
	}

	return params
}
