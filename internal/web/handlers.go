package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/shahhh-z/YourSpotifyTopStats/internal/playlist"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/session"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/spotify"
	"github.com/shahhh-z/YourSpotifyTopStats/internal/stats"
)

// Status messages shown on the playlist page.
const (
	msgPlaylistCreated = "Playlist Created"
	msgPlaylistFailed  = "Playlist Creation Failed"
)

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth      *spotifyauth.Authenticator
	sessions  session.Store
	stats     *stats.Aggregator
	builder   *playlist.Builder
	templates *Templates
	log       zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(auth *spotifyauth.Authenticator, sessions session.Store, aggregator *stats.Aggregator, builder *playlist.Builder, templates *Templates, log zerolog.Logger) *Handlers {
	return &Handlers{
		auth:      auth,
		sessions:  sessions,
		stats:     aggregator,
		builder:   builder,
		templates: templates,
		log:       log,
	}
}

// Index displays the login page (GET /).
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.GetFromRequest(r)
	h.render(w, "index", PageData{
		Title:         "Your Spotify Top Stats",
		CurrentPath:   r.URL.Path,
		Authenticated: sess.Authenticated(),
	})
}

// Home displays the home page (GET /home).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.GetFromRequest(r)
	h.render(w, "home", PageData{
		Title:         "Home",
		CurrentPath:   r.URL.Path,
		Authenticated: sess.Authenticated(),
	})
}

// Login initiates the Spotify OAuth flow (GET /login). The ?next parameter
// records where to return after the callback.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// A session exists from here on, even before tokens arrive, so the
	// referrer survives the round trip through Spotify.
	sess := h.sessions.GetFromRequest(r)
	if sess == nil {
		var err error
		sess, err = h.sessions.Create(ctx)
		if err != nil {
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		h.sessions.SetCookie(w, sess)
	}

	next := r.URL.Query().Get("next")
	if next == "" {
		next = "/"
	}
	h.sessions.SetReferrer(ctx, sess.ID, next)

	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback). It
// exchanges the authorization code for tokens and stores them on the
// session, then returns to the page the login started from.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Verify state
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	// Check for error from Spotify
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	// Exchange code for token
	token, err := h.auth.Token(ctx, state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	sess := h.sessions.GetFromRequest(r)
	if sess == nil {
		sess, err = h.sessions.Create(ctx)
		if err != nil {
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
	}

	h.storeToken(ctx, sess, token)
	h.sessions.SetCookie(w, sess)

	// Return to the page that started the login.
	referrer := h.sessions.PopReferrer(ctx, sess.ID)
	if referrer == "" || referrer == "/" {
		referrer = "/home"
	}
	http.Redirect(w, r, referrer, http.StatusTemporaryRedirect)
}

// Stats displays the top stats for the requested time range (GET /stats).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess := h.sessions.GetFromRequest(r)
	if !sess.Authenticated() {
		http.Redirect(w, r, "/login?next="+url.QueryEscape("/stats"), http.StatusTemporaryRedirect)
		return
	}

	rng := spotify.ParseTimeRange(r.URL.Query().Get("timeRange"))

	songs, err := h.stats.TopTracks(ctx, sess, rng)
	if err != nil {
		h.log.Error().Err(err).Msg("fetching top tracks")
		http.Error(w, "Failed to fetch stats", http.StatusBadGateway)
		return
	}

	artists, err := h.stats.TopArtists(ctx, sess, rng)
	if err != nil {
		h.log.Error().Err(err).Msg("fetching top artists")
		http.Error(w, "Failed to fetch stats", http.StatusBadGateway)
		return
	}

	h.render(w, "stats", StatsPageData{
		PageData: PageData{
			Title:         "Your Top Stats",
			CurrentPath:   r.URL.Path,
			Authenticated: true,
		},
		TimeRange:   rng,
		Description: rng.Description(),
		TopSongs:    songs,
		TopArtists:  artists,
	})
}

// Playlist displays the playlist page with an optional status message
// (GET /playlist).
func (h *Handlers) Playlist(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.GetFromRequest(r)
	h.render(w, "playlist", PlaylistPageData{
		PageData: PageData{
			Title:         "Create Playlist",
			CurrentPath:   r.URL.Path,
			Authenticated: sess.Authenticated(),
		},
		Message: r.URL.Query().Get("message"),
	})
}

// Submit creates a playlist of top songs from the form input (POST /submit).
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess := h.sessions.GetFromRequest(r)
	if !sess.Authenticated() {
		http.Redirect(w, r, "/login?next="+url.QueryEscape("/playlist"), http.StatusTemporaryRedirect)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	rng := spotify.ParseTimeRange(r.PostFormValue("timeRange"))

	message := msgPlaylistCreated
	if _, err := h.builder.BuildTopSongs(ctx, sess, rng); err != nil {
		if !errors.Is(err, playlist.ErrCreateFailed) {
			h.log.Error().Err(err).Msg("building playlist")
			http.Error(w, "Failed to create playlist", http.StatusBadGateway)
			return
		}
		h.log.Warn().Err(err).Msg("playlist creation failed")
		message = msgPlaylistFailed
	}

	http.Redirect(w, r, "/playlist?message="+url.QueryEscape(message), http.StatusSeeOther)
}

// Logout clears the session and returns to the login page (GET /logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := h.sessions.GetFromRequest(r); sess != nil {
		h.sessions.Delete(r.Context(), sess.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// storeToken copies an exchanged OAuth token onto the session and persists
// it through the store.
func (h *Handlers) storeToken(ctx context.Context, sess *session.Session, token *oauth2.Token) {
	sess.AccessToken = token.AccessToken
	sess.RefreshToken = token.RefreshToken
	h.sessions.SetTokens(ctx, sess.ID, token.AccessToken, token.RefreshToken)
}

// render executes a page template, reporting a 500 on failure.
func (h *Handlers) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.log.Error().Err(err).Str("page", page).Msg("rendering template")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
