package indielogin

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/tomnomnom/linkheader"
	"golang.org/x/net/html"
)

// Endpoints are the URLs a profile declares. Only Authorization is guaranteed
// to be set by FindEndpoints.
type Endpoints struct {
	Authorization *url.URL
	Token         *url.URL
	Micropub      *url.URL
}

// urlString returns the string form of u, or "" when u is nil.
func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}

	return u.String()
}

// AuthorizationString returns the authorization endpoint, or "".
func (e Endpoints) AuthorizationString() string { return urlString(e.Authorization) }

// TokenString returns the token endpoint, or "".
func (e Endpoints) TokenString() string { return urlString(e.Token) }

// MicropubString returns the Micropub endpoint, or "".
func (e Endpoints) MicropubString() string { return urlString(e.Micropub) }

// FindEndpoints retrieves the authorization, token and Micropub endpoints
// declared by me. As an authorization endpoint must exist to authenticate a
// user ErrAuthorizationEndpointMissing will be returned if one cannot be
// found; the others may be nil.
func (c *Client) FindEndpoints(ctx context.Context, me string) (Endpoints, error) {
	var endpoints Endpoints

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, me, nil)
	if err != nil {
		return endpoints, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.client().Do(req)
	if err != nil {
		return endpoints, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return endpoints, &RequestError{
			URL:        me,
			StatusCode: resp.StatusCode,
		}
	}

	// relative links resolve against wherever we were redirected to
	base := resp.Request.URL

	links := linkheader.ParseMultiple(resp.Header["Link"])

	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediatype == "text/html" || mediatype == "application/xhtml+xml" || mediatype == "" {
		root, err := html.Parse(resp.Body)
		if err == nil {
			links = append(links, findLinks(root)...)
		}
	}

	if metadataLinks := withRel(links, "indieauth-metadata"); len(metadataLinks) != 0 {
		metadataURL, err := base.Parse(metadataLinks[0].URL)
		if err != nil {
			return endpoints, err
		}

		endpoints, err = c.findByMetadata(ctx, metadataURL)
		if err != nil {
			return endpoints, err
		}
	} else {
		endpoints.Authorization = firstRel(base, links, "authorization_endpoint")
		endpoints.Token = firstRel(base, links, "token_endpoint")
	}

	endpoints.Micropub = firstRel(base, links, "micropub")

	if endpoints.Authorization == nil {
		return endpoints, ErrAuthorizationEndpointMissing
	}

	return endpoints, nil
}

// firstRel resolves the first link with rel against base. Links that do not
// parse are skipped.
func firstRel(base *url.URL, links linkheader.Links, rel string) *url.URL {
	for _, link := range withRel(links, rel) {
		if link.URL == "" {
			continue
		}

		if u, err := base.Parse(link.URL); err == nil {
			return u
		}
	}

	return nil
}

// withRel filters links to those with rel among their space separated rels.
func withRel(links linkheader.Links, rel string) linkheader.Links {
	var matched linkheader.Links

	for _, link := range links {
		for _, candidate := range strings.Fields(link.Rel) {
			if strings.EqualFold(candidate, rel) {
				matched = append(matched, link)
				break
			}
		}
	}

	return matched
}

type metadata struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

func (c *Client) findByMetadata(ctx context.Context, metadataURL *url.URL) (Endpoints, error) {
	var endpoints Endpoints

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL.String(), nil)
	if err != nil {
		return endpoints, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return endpoints, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return endpoints, &RequestError{
			URL:        metadataURL.String(),
			StatusCode: resp.StatusCode,
		}
	}

	var v metadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&v); err != nil {
		return endpoints, err
	}

	if v.AuthorizationEndpoint != "" {
		if u, err := metadataURL.Parse(v.AuthorizationEndpoint); err == nil {
			endpoints.Authorization = u
		}
	}

	if v.TokenEndpoint != "" {
		if u, err := metadataURL.Parse(v.TokenEndpoint); err == nil {
			endpoints.Token = u
		}
	}

	return endpoints, nil
}
