package indielogin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const maxBodySize = 1 << 20

// Exchange converts an authorization code into an access token. Before calling
// this be sure the callback passed VerifyCallback.
//
// An empty tokenEndpoint means the user only proved who they are, so an empty
// TokenResponse is returned without error. Otherwise the TokenResponse is
// never nil, even alongside an *ExchangeError, so that whatever the endpoint
// said can still be shown.
func (c *Client) Exchange(ctx context.Context, tokenEndpoint, code, me string) (*TokenResponse, error) {
	response := &TokenResponse{}
	if tokenEndpoint == "" {
		return response, nil
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"me":           {me},
		"redirect_uri": {c.RedirectURL},
		"client_id":    {c.ClientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return response, &ExchangeError{Message: "could not create a request for the token endpoint", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return response, &ExchangeError{Message: "could not reach the token endpoint", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return response, &ExchangeError{Message: "could not read the token endpoint response", Err: err}
	}
	response.Raw = string(body)

	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return response, &ExchangeError{
			Message: fmt.Sprintf("the token endpoint responded with %d", resp.StatusCode),
			Err: &RequestError{
				URL:        tokenEndpoint,
				StatusCode: resp.StatusCode,
				MediaType:  mediatype,
				Body:       body,
			},
		}
	}

	var data tokenData
	switch mediatype {
	case "application/json":
		if err := json.Unmarshal(body, &data); err != nil {
			return response, &ExchangeError{Message: "the token endpoint sent invalid JSON", Err: err}
		}

	case "application/x-www-form-urlencoded":
		data, err = formTokenData(body)
		if err != nil {
			return response, &ExchangeError{Message: "the token endpoint sent an invalid form", Err: err}
		}

	default:
		// some endpoints mislabel their response, so try both
		if err := json.Unmarshal(body, &data); err != nil || data == (tokenData{}) {
			data, err = formTokenData(body)
			if err != nil || data == (tokenData{}) {
				return response, &ExchangeError{
					Message: fmt.Sprintf("the token endpoint sent an unexpected content type %q", mediatype),
				}
			}
		}
	}

	response.Grant = data.grant()
	return response, nil
}

func formTokenData(body []byte) (tokenData, error) {
	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return tokenData{}, err
	}

	return tokenData{
		AccessToken: values.Get("access_token"),
		TokenType:   values.Get("token_type"),
		Scope:       values.Get("scope"),
		Me:          values.Get("me"),
	}, nil
}
