package indielogin

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CallbackPath is where the authorization endpoint sends users back to,
// relative to the base URL.
const CallbackPath = "auth/callback"

// Client talks to the endpoints a user declares. The zero value is not usable,
// create one with New.
type Client struct {
	// ClientID identifies this application to authorization endpoints, it is
	// the base URL.
	ClientID string

	// RedirectURL is always ClientID followed by CallbackPath, it is never
	// taken from a request.
	RedirectURL string

	HTTPClient *http.Client
}

// New creates a Client for an application served from baseURL. Every request
// made by the Client gives up after timeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, errors.New("base url must be an absolute http or https URL")
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	redirect := base.ResolveReference(&url.URL{Path: CallbackPath})

	return &Client{
		ClientID:    base.String(),
		RedirectURL: redirect.String(),
		HTTPClient:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}

	return http.DefaultClient
}
