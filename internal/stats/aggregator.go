// Package stats reshapes the user's top tracks and artists into
// display-ready data.
package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shahhh-z/YourSpotifyTopStats/internal/session"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/spotify"
)

// pageLimit is the page size requested from the top-items endpoints, the
// maximum the API allows.
const pageLimit = 50

// Item is one top track or artist, ready for rendering. ImageURL is empty
// when the API supplied no artwork.
type Item struct {
	Name     string
	ImageURL string
}

// Aggregator fetches top-item statistics through the authenticated client.
type Aggregator struct {
	client *spotify.Client
	log    zerolog.Logger
}

// New creates an Aggregator.
func New(client *spotify.Client, log zerolog.Logger) *Aggregator {
	return &Aggregator{client: client, log: log}
}

// TopTracks returns the user's top tracks for the given time range, keyed by
// track ID. An unrecoverable authorization failure or an unusable response
// yields an empty map so the stats page still renders; transport errors
// propagate.
func (a *Aggregator) TopTracks(ctx context.Context, sess *session.Session, rng spotify.TimeRange) (map[string]Item, error) {
	tracks, err := a.fetchTopTracks(ctx, sess, rng)
	if err != nil {
		return nil, err
	}

	items := make(map[string]Item, len(tracks))
	for _, t := range tracks {
		items[t.ID] = Item{
			Name:     t.Name,
			ImageURL: firstImageURL(t.Album.Images),
		}
	}
	return items, nil
}

// TopArtists returns the user's top artists for the given time range, keyed
// by artist ID. Degrades the same way TopTracks does.
func (a *Aggregator) TopArtists(ctx context.Context, sess *session.Session, rng spotify.TimeRange) (map[string]Item, error) {
	resp, err := a.client.Get(ctx, sess, a.topItemsURL("artists", rng))
	if err != nil {
		if errors.Is(err, spotify.ErrReauthRequired) {
			return map[string]Item{}, nil
		}
		return nil, err
	}

	var page struct {
		Items []spotify.Artist `json:"items"`
	}
	if err := resp.JSON(&page); err != nil {
		a.log.Warn().Err(err).Msg("unparseable top artists response")
		return map[string]Item{}, nil
	}

	items := make(map[string]Item, len(page.Items))
	for _, artist := range page.Items {
		items[artist.ID] = Item{
			Name:     artist.Name,
			ImageURL: firstImageURL(artist.Images),
		}
	}
	return items, nil
}

// TopTrackURIs returns the playable URIs of the top tracks in ranking order.
// Tracks without a URI stay in the list as empty entries.
func (a *Aggregator) TopTrackURIs(ctx context.Context, sess *session.Session, rng spotify.TimeRange) ([]string, error) {
	tracks, err := a.fetchTopTracks(ctx, sess, rng)
	if err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		uris = append(uris, t.URI)
	}
	return uris, nil
}

// fetchTopTracks retrieves the raw top-track list for a time range.
func (a *Aggregator) fetchTopTracks(ctx context.Context, sess *session.Session, rng spotify.TimeRange) ([]spotify.Track, error) {
	resp, err := a.client.Get(ctx, sess, a.topItemsURL("tracks", rng))
	if err != nil {
		if errors.Is(err, spotify.ErrReauthRequired) {
			return nil, nil
		}
		return nil, err
	}

	var page struct {
		Items []spotify.Track `json:"items"`
	}
	if err := resp.JSON(&page); err != nil {
		a.log.Warn().Err(err).Msg("unparseable top tracks response")
		return nil, nil
	}
	return page.Items, nil
}

// topItemsURL builds the top-items endpoint URL for tracks or artists.
func (a *Aggregator) topItemsURL(kind string, rng spotify.TimeRange) string {
	return fmt.Sprintf("%s/me/top/%s?time_range=%s&limit=%d", a.client.BaseURL(), kind, rng, pageLimit)
}

// firstImageURL returns the URL of the first image, or "" when there is none.
func firstImageURL(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
