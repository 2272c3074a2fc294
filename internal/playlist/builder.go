// Package playlist materializes "Your Top Songs" playlists from a user's
// top tracks.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/shahhh-z/YourSpotifyTopStats/internal/session"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/spotify"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/stats"
)

// ErrCreateFailed is returned when the playlist could not be created or the
// API returned no usable playlist ID. No track insertion is attempted then.
var ErrCreateFailed = errors.New("playlist creation failed")

// Builder creates playlists from top-track statistics.
type Builder struct {
	client *spotify.Client
	stats  *stats.Aggregator
	log    zerolog.Logger
}

// New creates a Builder.
func New(client *spotify.Client, aggregator *stats.Aggregator, log zerolog.Logger) *Builder {
	return &Builder{client: client, stats: aggregator, log: log}
}

// BuildTopSongs creates a private playlist named after the time range and
// fills it with the user's top tracks for that range. It returns the new
// playlist's ID. The outcome is decided by playlist creation alone; a failed
// track insertion is logged but does not fail the build. Transport errors
// propagate.
func (b *Builder) BuildTopSongs(ctx context.Context, sess *session.Session, rng spotify.TimeRange) (string, error) {
	description := rng.Description()

	userID, err := b.client.UserID(ctx, sess)
	if err != nil {
		if errors.Is(err, spotify.ErrReauthRequired) {
			return "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		return "", err
	}

	body := map[string]any{
		"name":        fmt.Sprintf("Your Top Songs (%s)", description),
		"description": fmt.Sprintf("Your top songs of the past %s!", description),
		"public":      false,
	}

	createURL := fmt.Sprintf("%s/users/%s/playlists", b.client.BaseURL(), url.PathEscape(userID))
	resp, err := b.client.Post(ctx, sess, createURL, body)
	if err != nil {
		if errors.Is(err, spotify.ErrReauthRequired) {
			return "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		return "", err
	}

	var created spotify.Playlist
	if err := resp.JSON(&created); err != nil || created.ID == "" {
		return "", fmt.Errorf("%w: no playlist id in response (status %d)", ErrCreateFailed, resp.StatusCode)
	}

	uris, err := b.stats.TopTrackURIs(ctx, sess, rng)
	if err != nil {
		return "", err
	}

	addURL := fmt.Sprintf("%s/playlists/%s/tracks", b.client.BaseURL(), url.PathEscape(created.ID))
	addBody := map[string]any{
		"uris":     uris,
		"position": 0,
	}

	addResp, err := b.client.Post(ctx, sess, addURL, addBody)
	switch {
	case err != nil:
		b.log.Warn().Err(err).Str("playlist_id", created.ID).Msg("failed to add tracks to playlist")
	case !addResp.OK():
		b.log.Warn().Int("status", addResp.StatusCode).Str("playlist_id", created.ID).Msg("adding tracks to playlist was rejected")
	}

	return created.ID, nil
}
