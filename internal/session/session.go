// Package session provides per-user server-side session storage.
//
// A session is created when the user starts the login flow, populated with
// OAuth tokens by the callback handler, and destroyed on logout. Everything
// that needs session state takes an explicit *Session handle; nothing reads
// ambient globals.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shahhh-z/YourSpotifyTopStats/internal/db"
)

const (
	sessionCookieName = "session_id"
	sessionTTL        = 24 * time.Hour
)

// Session holds the state for one logged-in (or logging-in) user.
type Session struct {
	ID           string
	AccessToken  string
	RefreshToken string
	UserID       string // Spotify user ID, cached after the first profile lookup
	ReferrerURL  string // where to return after the OAuth callback
	CreatedAt    time.Time
}

// Authenticated reports whether the session holds an access token.
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// Store defines the interface for session management.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) *Session
	Delete(ctx context.Context, id string)

	// SetTokens updates the access token and, when rotated by the token
	// endpoint, the refresh token. An empty refreshToken keeps the old one.
	SetTokens(ctx context.Context, id, accessToken, refreshToken string)
	SetUserID(ctx context.Context, id, userID string)
	SetReferrer(ctx context.Context, id, url string)
	PopReferrer(ctx context.Context, id string) string

	GetFromRequest(r *http.Request) *Session
	SetCookie(w http.ResponseWriter, session *Session)
	ClearCookie(w http.ResponseWriter)
}

// ============================================================================
// In-Memory Store (default when no database is configured)
// ============================================================================

// MemoryStore manages user sessions in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Create generates a new, unauthenticated session.
func (s *MemoryStore) Create(_ context.Context) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session, nil
}

// Get retrieves a session by ID, or nil if missing or expired.
func (s *MemoryStore) Get(_ context.Context, id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil
	}

	if time.Since(session.CreatedAt) > sessionTTL {
		return nil
	}

	return session
}

// Delete removes a session by ID.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// SetTokens updates the OAuth tokens for a session.
func (s *MemoryStore) SetTokens(_ context.Context, id, accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		session.AccessToken = accessToken
		if refreshToken != "" {
			session.RefreshToken = refreshToken
		}
	}
}

// SetUserID caches the Spotify user ID on a session.
func (s *MemoryStore) SetUserID(_ context.Context, id, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		session.UserID = userID
	}
}

// SetReferrer records the URL to return to after authentication.
func (s *MemoryStore) SetReferrer(_ context.Context, id, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		session.ReferrerURL = url
	}
}

// PopReferrer returns and clears the stored referrer URL.
func (s *MemoryStore) PopReferrer(_ context.Context, id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ""
	}
	url := session.ReferrerURL
	session.ReferrerURL = ""
	return url
}

// GetFromRequest extracts the session from the request cookie.
func (s *MemoryStore) GetFromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	return s.Get(r.Context(), cookie.Value)
}

// SetCookie sets the session cookie on the response.
func (s *MemoryStore) SetCookie(w http.ResponseWriter, session *Session) {
	setCookie(w, session)
}

// ClearCookie removes the session cookie from the response.
func (s *MemoryStore) ClearCookie(w http.ResponseWriter) {
	clearCookie(w)
}

// ============================================================================
// Database-Backed Store
// ============================================================================

// DBStore manages user sessions in PostgreSQL. Rows live no longer than the
// session itself: they are deleted on logout and swept once expired.
type DBStore struct {
	database *db.DB
}

// NewDBStore creates a new database-backed session store.
func NewDBStore(database *db.DB) *DBStore {
	return &DBStore{database: database}
}

// Create generates a new session and stores it in the database.
func (s *DBStore) Create(ctx context.Context) (*Session, error) {
	now := time.Now()
	dbSession := &db.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}

	if err := s.database.Sessions().Create(ctx, dbSession); err != nil {
		return nil, err
	}

	return &Session{
		ID:        dbSession.ID,
		CreatedAt: now,
	}, nil
}

// Get retrieves a session by ID from the database, or nil if missing/expired.
func (s *DBStore) Get(ctx context.Context, id string) *Session {
	dbSession, err := s.database.Sessions().Get(ctx, id)
	if err != nil {
		return nil
	}

	return &Session{
		ID:           dbSession.ID,
		AccessToken:  dbSession.AccessToken,
		RefreshToken: dbSession.RefreshToken,
		UserID:       dbSession.UserID,
		ReferrerURL:  dbSession.ReferrerURL,
		CreatedAt:    dbSession.CreatedAt,
	}
}

// Delete removes a session from the database.
func (s *DBStore) Delete(ctx context.Context, id string) {
	_ = s.database.Sessions().Delete(ctx, id)
}

// SetTokens updates the OAuth tokens for a session in the database.
func (s *DBStore) SetTokens(ctx context.Context, id, accessToken, refreshToken string) {
	_ = s.database.Sessions().UpdateTokens(ctx, id, accessToken, refreshToken)
}

// SetUserID caches the Spotify user ID on a session in the database.
func (s *DBStore) SetUserID(ctx context.Context, id, userID string) {
	_ = s.database.Sessions().SetUserID(ctx, id, userID)
}

// SetReferrer records the URL to return to after authentication.
func (s *DBStore) SetReferrer(ctx context.Context, id, url string) {
	_ = s.database.Sessions().SetReferrer(ctx, id, url)
}

// PopReferrer returns and clears the stored referrer URL.
func (s *DBStore) PopReferrer(ctx context.Context, id string) string {
	url, err := s.database.Sessions().PopReferrer(ctx, id)
	if err != nil {
		return ""
	}
	return url
}

// GetFromRequest extracts the session from the request cookie.
func (s *DBStore) GetFromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	return s.Get(r.Context(), cookie.Value)
}

// SetCookie sets the session cookie on the response.
func (s *DBStore) SetCookie(w http.ResponseWriter, session *Session) {
	setCookie(w, session)
}

// ClearCookie removes the session cookie from the response.
func (s *DBStore) ClearCookie(w http.ResponseWriter) {
	clearCookie(w)
}

// ============================================================================
// Helper Functions
// ============================================================================

// setCookie sets the session cookie on the response.
func setCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

// clearCookie removes the session cookie from the response.
func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// Ensure both stores implement Store.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DBStore)(nil)
)
