// Package micropub queries a Micropub endpoint for its configuration.
package micropub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
)

// Config is the subset of a q=config response that is kept.
type Config struct {
	MediaEndpoint string
	SyndicateTo   []SyndicationTarget

	// Raw is the syndication targets exactly as they were sent.
	RawSyndicateTo json.RawMessage
}

// SyndicationTarget is somewhere a post can be copied to.
type SyndicationTarget struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Client makes requests to Micropub endpoints.
type Client struct {
	HTTPClient *http.Client
}

// New creates a Client that gives up after timeout.
func New(timeout time.Duration) *Client {
	return &Client{HTTPClient: &http.Client{Timeout: timeout}}
}

// Config asks endpoint for its configuration using token.
func (c *Client) Config(ctx context.Context, endpoint, token string) (*Config, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	query := u.Query()
	query.Set("q", "config")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode != http.StatusOK || mediatype != "application/json" {
		return nil, fmt.Errorf("micropub config: received a %d (%s) response", resp.StatusCode, mediatype)
	}

	var data struct {
		MediaEndpoint string          `json:"media-endpoint"`
		SyndicateTo   json.RawMessage `json:"syndicate-to"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&data); err != nil {
		return nil, fmt.Errorf("micropub config: %w", err)
	}

	config := &Config{
		MediaEndpoint:  data.MediaEndpoint,
		RawSyndicateTo: data.SyndicateTo,
	}

	if len(data.SyndicateTo) > 0 {
		// targets that are not objects are kept in Raw only
		_ = json.Unmarshal(data.SyndicateTo, &config.SyndicateTo)
	}

	if config.MediaEndpoint != "" {
		if media, err := u.Parse(config.MediaEndpoint); err == nil {
			config.MediaEndpoint = media.String()
		}
	}

	return config, nil
}
