// Package config reads the settings for the indielogin server from the
// environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is everything the server needs to run.
type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`

	// BaseURL is where the server is reached, it is the client_id and always
	// ends with a slash.
	BaseURL string `env:"BASE_URL,required"`

	// SessionSecret is base64 encoded, 32 or 64 bytes.
	SessionSecret string `env:"SESSION_SECRET,required"`

	// DatabasePath is a SQLite file, users are kept in memory when empty.
	DatabasePath string `env:"DATABASE_PATH"`

	// RedisAddr is used to remember which states have been used, they are kept
	// in memory when empty.
	RedisAddr string `env:"REDIS_ADDR"`

	Scope       string        `env:"SCOPE" envDefault:"create update media"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	PendingTTL  time.Duration `env:"PENDING_TTL" envDefault:"10m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY"`
}

// Load reads the Config from the environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("BASE_URL: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return errors.New("BASE_URL: must be an absolute http or https URL")
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}

	secret, err := base64.StdEncoding.DecodeString(c.SessionSecret)
	if err != nil {
		return fmt.Errorf("SESSION_SECRET: %w", err)
	}
	if len(secret) != 32 && len(secret) != 64 {
		return errors.New("SESSION_SECRET: must be 32 or 64 bytes")
	}

	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT: must be positive")
	}
	if c.PendingTTL <= 0 {
		return errors.New("PENDING_TTL: must be positive")
	}

	return nil
}

// Secure is true when cookies should only be sent over https.
func (c Config) Secure() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}
