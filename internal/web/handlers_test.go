package web

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/shahhh-z/YourSpotifyTopStats/internal/session"
	webfs "github.com/shahhh-z/YourSpotifyTopStats/web"
)

// newTestHandlers builds Handlers with real templates and an in-memory
// session store. Stats and playlist collaborators stay nil; the tests here
// never reach them.
func newTestHandlers(t *testing.T) (*Handlers, *session.MemoryStore) {
	t.Helper()

	templatesFS, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		t.Fatalf("creating templates filesystem: %v", err)
	}
	templates, err := NewTemplates(templatesFS)
	if err != nil {
		t.Fatalf("loading templates: %v", err)
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID("client-id"),
		spotifyauth.WithClientSecret("client-secret"),
		spotifyauth.WithRedirectURL("http://127.0.0.1:8080/callback"),
		spotifyauth.WithScopes(spotifyauth.ScopeUserTopRead),
	)

	store := session.NewMemoryStore()
	return NewHandlers(auth, store, nil, nil, templates, zerolog.Nop()), store
}

func TestIndex_RendersLoginPage(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "Log in with Spotify") {
		t.Error("index page should offer a Spotify login")
	}
}

func TestStats_RedirectsWhenLoggedOut(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login?next=%2Fstats" {
		t.Errorf("Location = %q, want /login?next=%%2Fstats", got)
	}
}

func TestSubmit_RedirectsWhenLoggedOut(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("timeRange=short_term")))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login?next=%2Fplaylist" {
		t.Errorf("Location = %q, want /login?next=%%2Fplaylist", got)
	}
}

func TestLogin_StartsOAuthFlow(t *testing.T) {
	h, store := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/login?next=/stats", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "https://accounts.spotify.com/authorize") {
		t.Errorf("Location = %q, want Spotify authorize URL", location)
	}

	var stateCookie, sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case "oauth_state":
			stateCookie = c
		case "session_id":
			sessionCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Error("login should set an oauth_state cookie")
	}
	if sessionCookie == nil {
		t.Fatal("login should set a session cookie")
	}
	if !strings.Contains(location, "state="+stateCookie.Value) {
		t.Error("authorize URL should carry the state from the cookie")
	}

	// The referrer waits on the session for the callback to pop.
	sess := store.Get(context.Background(), sessionCookie.Value)
	if sess == nil {
		t.Fatal("login should create a session")
	}
	if sess.ReferrerURL != "/stats" {
		t.Errorf("ReferrerURL = %q, want /stats", sess.ReferrerURL)
	}
}

func TestPlaylist_ShowsMessage(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Playlist(rec, httptest.NewRequest(http.MethodGet, "/playlist?message=Playlist+Created", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "Playlist Created") {
		t.Error("playlist page should show the status message")
	}
}

func TestLogout_DestroysSession(t *testing.T) {
	h, store := newTestHandlers(t)

	ctx := context.Background()
	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	store.SetTokens(ctx, sess.ID, "access", "refresh")

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: sess.ID})

	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want /", got)
	}
	if store.Get(ctx, sess.ID) != nil {
		t.Error("logout should delete the session")
	}
}
