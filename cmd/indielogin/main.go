// Command indielogin serves the sign-in pages for a Micropub client.
//
// It is configured with environment variables, at least BASE_URL and
// SESSION_SECRET must be set:
//
//	BASE_URL=http://localhost:8080/ SESSION_SECRET=$(head -c32 /dev/urandom | base64) indielogin
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"hawx.me/code/indielogin"
	"hawx.me/code/indielogin/config"
	"hawx.me/code/indielogin/login"
	"hawx.me/code/indielogin/micropub"
	"hawx.me/code/indielogin/replay"
	"hawx.me/code/indielogin/sessions"
	"hawx.me/code/indielogin/users"
	"hawx.me/code/indielogin/views"
)

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := newLogger("info", false)
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := newLogger(cfg.LogLevel, cfg.LogPretty)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	client, err := indielogin.New(cfg.BaseURL, cfg.HTTPTimeout)
	if err != nil {
		return err
	}

	var store users.Store
	if cfg.DatabasePath != "" {
		db, err := users.OpenSQLite(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	} else {
		logger.Warn().Msg("DATABASE_PATH not set, users will be forgotten on restart")
		store = users.NewMemory()
	}

	var guard replay.Guard
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		guard = replay.NewRedis(rdb, "indielogin", cfg.PendingTTL)
	} else {
		memory := replay.NewMemory(cfg.PendingTTL)
		defer memory.Stop()
		guard = memory
	}

	session, err := sessions.New(cfg.SessionSecret, sessions.Options{
		Secure: cfg.Secure(),
		MaxAge: 30 * 24 * 60 * 60,
	})
	if err != nil {
		return err
	}

	pages, err := views.New()
	if err != nil {
		return err
	}

	service := &login.Service{
		Client:     client,
		Users:      store,
		Guard:      guard,
		Micropub:   micropub.New(cfg.HTTPTimeout),
		Metrics:    login.NewMetrics(prometheus.DefaultRegisterer),
		Logger:     logger,
		Scope:      cfg.Scope,
		PendingTTL: cfg.PendingTTL,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	login.NewHandler(service, session, pages).Routes(r)

	home := func(w http.ResponseWriter, r *http.Request) {
		state := session.Load(r)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pages.Render(w, "index", map[string]any{
			"title": "indielogin",
			"me":    state.Me,
			"reply": r.URL.Query().Get("reply"),
		}); err != nil {
			logger.Error().Err(err).Msg("could not render index")
		}
	}
	r.Get("/", home)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("base_url", cfg.BaseURL).Msg("listening")
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info().Msg("shutting down")
	return srv.Shutdown(ctx)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
