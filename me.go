package indielogin

import (
	"net/url"
	"strings"
)

// NormalizeMe turns what a user typed into a canonical profile URL, so that
// "example.com", "http://example.com" and "http://Example.com/" all become
// "http://example.com/".
func NormalizeMe(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidMe
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidMe
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidMe
	}
	if u.Hostname() == "" || strings.HasSuffix(u.Host, ":") || u.User != nil {
		return "", ErrInvalidMe
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String(), nil
}

// HostMatches reports whether a and b are URLs on the same host. Port is part
// of the host.
func HostMatches(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil || ua.Host == "" {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil || ub.Host == "" {
		return false
	}

	return strings.EqualFold(ua.Host, ub.Host)
}
