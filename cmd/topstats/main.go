// Command topstats runs the Your Spotify Top Stats web application.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/shahhh-z/YourSpotifyTopStats/internal/config"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/db"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/playlist"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/session"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/spotify"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/stats"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/web"
	webfs "github.com/shahhh-z/YourSpotifyTopStats/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx := context.Background()

	// Sessions live in PostgreSQL when a database is configured, in memory
	// otherwise.
	var sessions session.Store
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		if swept, err := database.Sessions().DeleteExpired(ctx); err == nil && swept > 0 {
			log.Info().Int64("sessions", swept).Msg("swept expired sessions")
		}

		sessions = session.NewDBStore(database)
		log.Info().Msg("using database-backed sessions")
	} else {
		sessions = session.NewMemoryStore()
		log.Info().Msg("using in-memory sessions")
	}

	client := spotify.NewClient(spotify.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, sessions, log)

	aggregator := stats.New(client, log)
	builder := playlist.New(client, aggregator, log)

	// Create sub-filesystems for templates and static files
	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.Addr,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		TemplatesFS:  templates,
		StaticFS:     static,
	}, web.Deps{
		Sessions: sessions,
		Stats:    aggregator,
		Builder:  builder,
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
