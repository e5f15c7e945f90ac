package login

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"hawx.me/code/indielogin"
	"hawx.me/code/indielogin/micropub"
	"hawx.me/code/indielogin/replay"
	"hawx.me/code/indielogin/users"
)

var testNow = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

// testProvider is a profile page along with the endpoints it declares.
type testProvider struct {
	*httptest.Server

	mu         sync.Mutex
	tokenMe    string
	tokenFails bool
	revokeFail bool
	revoked    []string
	noLinks    bool

	configFails bool
}

func newTestProvider(t *testing.T) *testProvider {
	p := &testProvider{}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if !p.noLinks {
			w.Header().Add("Link", `</auth>; rel="authorization_endpoint"`)
			w.Header().Add("Link", `</token>; rel="token_endpoint"`)
			w.Header().Add("Link", `</micropub>; rel="micropub"`)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>hi</body></html>`))
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if r.FormValue("action") == "revoke" {
			p.revoked = append(p.revoked, r.FormValue("token"))
			if p.revokeFail {
				http.Error(w, "", http.StatusInternalServerError)
			}
			return
		}

		if p.tokenFails || r.FormValue("code") != "the-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}

		me := p.tokenMe
		if me == "" {
			me = p.URL + "/"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"me":           me,
			"access_token": "abc",
			"token_type":   "Bearer",
			"scope":        "create",
		})
	})

	mux.HandleFunc("/micropub", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.configFails {
			http.Error(w, "", http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("Authorization") != "Bearer abc" {
			http.Error(w, "", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"media-endpoint": "/media", "syndicate-to": []}`))
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)

	return p
}

func (p *testProvider) me() string {
	return p.URL + "/"
}

func (p *testProvider) setConfigFails(fails bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.configFails = fails
}

func (p *testProvider) revocations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.revoked...)
}

// returningUser stores a user for p that has signed in before.
func (p *testProvider) returningUser(t *testing.T, store users.Store, scope string) *users.User {
	ctx := context.Background()

	user, err := store.Create(ctx, p.me(), testNow.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	user.AuthorizationEndpoint = p.URL + "/auth"
	user.TokenEndpoint = p.URL + "/token"
	user.MicropubEndpoint = p.URL + "/micropub"
	user.AccessToken = "old"
	user.Scope = scope

	if err := store.Save(ctx, user); err != nil {
		t.Fatal(err)
	}

	return user
}

func testService(t *testing.T) (*Service, *users.Memory) {
	client, err := indielogin.New("http://client.example/", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	guard := replay.NewMemory(time.Minute)
	t.Cleanup(guard.Stop)

	store := users.NewMemory()

	return &Service{
		Client:   client,
		Users:    store,
		Guard:    guard,
		Micropub: micropub.New(5 * time.Second),
		Metrics:  NewMetrics(prometheus.NewRegistry()),
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return testNow },
	}, store
}
