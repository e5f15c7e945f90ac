package indielogin

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Grant is what a token endpoint issues for an authorization code.
type Grant struct {
	Me          string
	AccessToken string
	TokenType   string
	Scopes      []string
}

// HasScope returns true if the Grant was issued with the scope.
func (g Grant) HasScope(scope string) bool {
	for _, candidate := range g.Scopes {
		if candidate == scope {
			return true
		}
	}

	return false
}

// Scope returns the granted scopes in their space separated form.
func (g Grant) Scope() string {
	return strings.Join(g.Scopes, " ")
}

// TokenResponse is the outcome of an exchange. Grant is nil when nothing
// usable came back, Raw keeps whatever the token endpoint sent.
type TokenResponse struct {
	Grant *Grant
	Raw   string
}

// Pretty returns Raw indented if it is JSON, otherwise Raw unchanged.
func (r *TokenResponse) Pretty() string {
	if r == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(r.Raw), "", "  "); err != nil {
		return r.Raw
	}

	return buf.String()
}

type tokenData struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Me          string `json:"me"`
}

// grant returns nil unless me, access_token and scope are all present.
func (d tokenData) grant() *Grant {
	if d.Me == "" || d.AccessToken == "" || strings.TrimSpace(d.Scope) == "" {
		return nil
	}

	return &Grant{
		Me:          d.Me,
		AccessToken: d.AccessToken,
		TokenType:   d.TokenType,
		Scopes:      strings.Fields(d.Scope),
	}
}
