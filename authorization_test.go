package indielogin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hawx.me/code/assert"
)

type testTokenEndpoint struct {
	t           *testing.T
	contentType string
	body        string
}

func (e *testTokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert := assert.Wrap(e.t)

	ok := assert(r.Method).Equal("POST") &&
		assert(r.Header.Get("Content-Type")).Equal("application/x-www-form-urlencoded") &&
		assert(r.Header.Get("Accept")).Equal("application/json") &&
		assert(r.FormValue("grant_type")).Equal("authorization_code") &&
		assert(r.FormValue("code")).Equal("abcde") &&
		assert(r.FormValue("me")).Equal("http://me.localhost/") &&
		assert(r.FormValue("client_id")).Equal("http://localhost/") &&
		assert(r.FormValue("redirect_uri")).Equal("http://localhost/auth/callback")

	if ok {
		w.Header().Set("Content-Type", e.contentType)
		w.Write([]byte(e.body))
	} else {
		http.Error(w, "", http.StatusBadRequest)
	}
}

func TestExchange(t *testing.T) {
	assert := assert.Wrap(t)

	ts := httptest.NewServer(&testTokenEndpoint{
		t:           t,
		contentType: "application/json",
		body:        `{"access_token": "tokentoken", "token_type": "Bearer", "scope": "create update media", "me": "http://me.localhost/"}`,
	})
	defer ts.Close()

	resp, err := testClient(t).Exchange(context.Background(), ts.URL, "abcde", "http://me.localhost/")
	assert(err).Must.Nil()

	token := resp.Grant
	assert(token.AccessToken).Equal("tokentoken")
	assert(token.TokenType).Equal("Bearer")
	assert(token.Scopes).Len(3)
	assert(token.HasScope("create")).True()
	assert(token.HasScope("update")).True()
	assert(token.HasScope("media")).True()
	assert(token.Scope()).Equal("create update media")
	assert(token.Me).Equal("http://me.localhost/")
	assert(resp.Raw).Equal(`{"access_token": "tokentoken", "token_type": "Bearer", "scope": "create update media", "me": "http://me.localhost/"}`)
}

func TestExchangeFormEncoded(t *testing.T) {
	assert := assert.Wrap(t)

	ts := httptest.NewServer(&testTokenEndpoint{
		t:           t,
		contentType: "application/x-www-form-urlencoded",
		body:        "me=http%3A%2F%2Fme.localhost%2F&scope=create&access_token=abc",
	})
	defer ts.Close()

	resp, err := testClient(t).Exchange(context.Background(), ts.URL, "abcde", "http://me.localhost/")
	assert(err).Must.Nil()

	assert(resp.Grant.AccessToken).Equal("abc")
	assert(resp.Grant.Scope()).Equal("create")
	assert(resp.Grant.Me).Equal("http://me.localhost/")
}

func TestExchangeMislabelledContentType(t *testing.T) {
	testCases := map[string]struct {
		contentType string
		body        string
	}{
		"json as text/plain": {
			contentType: "text/plain",
			body:        `{"access_token": "abc", "scope": "create", "me": "http://me.localhost/"}`,
		},
		"form as text/plain": {
			contentType: "text/plain; charset=utf-8",
			body:        "me=http%3A%2F%2Fme.localhost%2F&scope=create&access_token=abc",
		},
		"json without content type": {
			body: `{"access_token": "abc", "scope": "create", "me": "http://me.localhost/"}`,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert := assert.Wrap(t)

			ts := httptest.NewServer(&testTokenEndpoint{t: t, contentType: tc.contentType, body: tc.body})
			defer ts.Close()

			resp, err := testClient(t).Exchange(context.Background(), ts.URL, "abcde", "http://me.localhost/")
			assert(err).Must.Nil()
			assert(resp.Grant.AccessToken).Equal("abc")
			assert(resp.Grant.Me).Equal("http://me.localhost/")
		})
	}
}

func TestExchangeUnreadableResponse(t *testing.T) {
	assert := assert.Wrap(t)

	ts := httptest.NewServer(&testTokenEndpoint{
		t:           t,
		contentType: "text/plain",
		body:        "something went wrong",
	})
	defer ts.Close()

	resp, err := testClient(t).Exchange(context.Background(), ts.URL, "abcde", "http://me.localhost/")

	var exchangeErr *ExchangeError
	assert(errors.As(err, &exchangeErr)).True()
	assert(resp.Grant).Nil()
	assert(resp.Raw).Equal("something went wrong")
}

func TestExchangeWithoutTokenEndpoint(t *testing.T) {
	assert := assert.Wrap(t)

	resp, err := testClient(t).Exchange(context.Background(), "", "abcde", "http://me.localhost/")

	assert(err).Nil()
	assert(resp.Grant).Nil()
	assert(resp.Raw).Equal("")
}

func TestExchangeMissingFieldsIsNoGrant(t *testing.T) {
	assert := assert.Wrap(t)

	ts := httptest.NewServer(&testTokenEndpoint{
		t:           t,
		contentType: "application/json",
		body:        `{"access_token": "tokentoken", "me": "http://me.localhost/"}`,
	})
	defer ts.Close()

	resp, err := testClient(t).Exchange(context.Background(), ts.URL, "abcde", "http://me.localhost/")

	assert(err).Nil()
	assert(resp.Grant).Nil()
	assert(resp.Raw).Equal(`{"access_token": "tokentoken", "me": "http://me.localhost/"}`)
}

func TestExchangeBadResponse(t *testing.T) {
	assert := assert.Wrap(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer ts.Close()

	resp, err := testClient(t).Exchange(context.Background(), ts.URL, "abcde", "http://me.localhost/")

	var exchangeErr *ExchangeError
	assert(errors.As(err, &exchangeErr)).True()
	assert(exchangeErr.Message).Equal("the token endpoint responded with 400")

	var requestErr *RequestError
	assert(errors.As(err, &requestErr)).True()
	assert(resp.Grant).Nil()
	assert(resp.Raw).Equal(`{"error": "invalid_grant"}`)
	assert(resp.Pretty()).Equal("{\n  \"error\": \"invalid_grant\"\n}")
}

func TestExchangeUnreachable(t *testing.T) {
	assert := assert.Wrap(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	resp, err := testClient(t).Exchange(context.Background(), ts.URL, "abcde", "http://me.localhost/")

	var exchangeErr *ExchangeError
	assert(errors.As(err, &exchangeErr)).True()
	assert(exchangeErr.Message).Equal("could not reach the token endpoint")
	assert(resp.Grant).Nil()
}
