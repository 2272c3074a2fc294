// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Defaults for optional settings.
const (
	DefaultAddr        = "127.0.0.1:8080"
	DefaultRedirectURI = "http://127.0.0.1:8080/callback"
)

// ErrMissingCredentials is returned when SPOTIFY_CLIENT_ID or
// SPOTIFY_CLIENT_SECRET is not set.
var ErrMissingCredentials = errors.New("missing SPOTIFY_CLIENT_ID or SPOTIFY_CLIENT_SECRET environment variable")

// Config holds the application configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Addr         string

	// DatabaseURL enables the PostgreSQL-backed session store when set.
	DatabaseURL string
}

// Load reads configuration from a .env file (when present) and the
// environment. Returns ErrMissingCredentials when the Spotify app
// credentials are absent.
func Load() (*Config, error) {
	// .env is a convenience for local development; a missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("REDIRECT_URI"),
		Addr:         os.Getenv("ADDR"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	return cfg, nil
}
