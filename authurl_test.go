package indielogin

import (
	"testing"

	"hawx.me/code/assert"
)

func TestAuthorizationURL(t *testing.T) {
	assert := assert.Wrap(t)

	client, _ := New("https://webapp.example.com/", 0)
	authURL := client.AuthorizationURL(urlParse("https://auth.example.com/auth"), "http://example.com/", "1234", "create update media")

	expected := "https://auth.example.com/auth" +
		"?response_type=code" +
		"&client_id=https%3A%2F%2Fwebapp.example.com%2F" +
		"&redirect_uri=https%3A%2F%2Fwebapp.example.com%2Fauth%2Fcallback" +
		"&scope=create+update+media" +
		"&me=http%3A%2F%2Fexample.com%2F" +
		"&state=1234"

	assert(authURL.String()).Equal(expected)
	assert(authURL.Get("scope")).Equal("create update media")
	assert(authURL.Endpoint()).Equal("https://auth.example.com/auth")
}

func TestAuthorizationURLKeepsEndpointQuery(t *testing.T) {
	assert := assert.Wrap(t)

	authURL := BuildAuthorizationURL(urlParse("https://auth.example.com/?client=x"),
		"http://example.com/", "http://localhost/auth/callback", "http://localhost/", "1234", "create")

	assert(authURL.String()).Equal("https://auth.example.com/?client=x" +
		"&response_type=code" +
		"&client_id=http%3A%2F%2Flocalhost%2F" +
		"&redirect_uri=http%3A%2F%2Flocalhost%2Fauth%2Fcallback" +
		"&scope=create" +
		"&me=http%3A%2F%2Fexample.com%2F" +
		"&state=1234")
}

func TestAuthorizationURLWithScope(t *testing.T) {
	assert := assert.Wrap(t)

	authURL := BuildAuthorizationURL(urlParse("https://auth.example.com/auth"),
		"http://example.com/", "http://localhost/auth/callback", "http://localhost/", "1234", "create update media")

	changed := authURL.WithScope("create")

	assert(changed.Get("scope")).Equal("create")
	assert(changed.Get("state")).Equal("1234")
	assert(authURL.Get("scope")).Equal("create update media")
	assert(changed.String()).Equal("https://auth.example.com/auth" +
		"?response_type=code" +
		"&client_id=http%3A%2F%2Flocalhost%2F" +
		"&redirect_uri=http%3A%2F%2Flocalhost%2Fauth%2Fcallback" +
		"&scope=create" +
		"&me=http%3A%2F%2Fexample.com%2F" +
		"&state=1234")
}

func TestParseAuthorizationURL(t *testing.T) {
	assert := assert.Wrap(t)

	authURL := BuildAuthorizationURL(urlParse("https://auth.example.com/auth"),
		"http://example.com/", "http://localhost/auth/callback", "http://localhost/", "1234", "create update")

	parsed, err := ParseAuthorizationURL(authURL.String())
	assert(err).Must.Nil()
	assert(parsed.String()).Equal(authURL.String())
	assert(parsed.WithScope("").Get("scope")).Equal("")

	noScope, err := ParseAuthorizationURL("https://auth.example.com/auth?state=1")
	assert(err).Must.Nil()
	assert(noScope.WithScope("create").String()).Equal("https://auth.example.com/auth?state=1&scope=create")

	_, err = ParseAuthorizationURL("/relative?scope=x")
	assert(err == nil).Equal(false)

	_, err = ParseAuthorizationURL("javascript:alert(1)")
	assert(err == nil).Equal(false)
}
