package micropub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hawx.me/code/assert"
)

func TestConfig(t *testing.T) {
	assert := assert.Wrap(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "config" || r.Header.Get("Authorization") != "Bearer abc" {
			http.Error(w, "", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
  "media-endpoint": "/media",
  "syndicate-to": [{"uid": "https://social.example/", "name": "Social"}]
}`))
	}))
	defer ts.Close()

	config, err := New(time.Second).Config(context.Background(), ts.URL+"/micropub", "abc")
	assert(err).Must.Nil()

	assert(config.MediaEndpoint).Equal(ts.URL + "/media")
	assert(config.SyndicateTo).Len(1)
	assert(config.SyndicateTo[0].UID).Equal("https://social.example/")
	assert(config.SyndicateTo[0].Name).Equal("Social")
	assert(string(config.RawSyndicateTo)).Equal(`[{"uid": "https://social.example/", "name": "Social"}]`)
}

func TestConfigUnauthorized(t *testing.T) {
	assert := assert.Wrap(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "", http.StatusUnauthorized)
	}))
	defer ts.Close()

	config, err := New(time.Second).Config(context.Background(), ts.URL, "abc")
	assert(err == nil).Equal(false)
	assert(config).Nil()
}
