package indielogin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Revoke asks tokenEndpoint to forget token. It is a courtesy; callers should
// clear their own copy of the token whatever is returned.
func (c *Client) Revoke(ctx context.Context, tokenEndpoint, token string) error {
	if tokenEndpoint == "" || token == "" {
		return errors.New("nothing to revoke")
	}

	form := url.Values{
		"action": {"revoke"},
		"token":  {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			URL:        tokenEndpoint,
			StatusCode: resp.StatusCode,
		}
	}

	return nil
}
