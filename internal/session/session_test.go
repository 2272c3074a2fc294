package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create() returned session without ID")
	}
	if sess.Authenticated() {
		t.Error("new session should not be authenticated")
	}

	if got := store.Get(ctx, sess.ID); got != sess {
		t.Errorf("Get() = %v, want the created session", got)
	}
	if got := store.Get(ctx, "missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	sess.CreatedAt = time.Now().Add(-sessionTTL - time.Minute)

	if got := store.Get(ctx, sess.ID); got != nil {
		t.Errorf("Get() on expired session = %v, want nil", got)
	}
}

func TestMemoryStore_SetTokens(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, _ := store.Create(ctx)

	store.SetTokens(ctx, sess.ID, "access-1", "refresh-1")
	if sess.AccessToken != "access-1" || sess.RefreshToken != "refresh-1" {
		t.Fatalf("tokens = %q/%q, want access-1/refresh-1", sess.AccessToken, sess.RefreshToken)
	}
	if !sess.Authenticated() {
		t.Error("session with access token should be authenticated")
	}

	// An empty refresh token keeps the stored one.
	store.SetTokens(ctx, sess.ID, "access-2", "")
	if sess.AccessToken != "access-2" {
		t.Errorf("access token = %q, want access-2", sess.AccessToken)
	}
	if sess.RefreshToken != "refresh-1" {
		t.Errorf("refresh token = %q, want refresh-1", sess.RefreshToken)
	}

	// A rotated refresh token replaces it.
	store.SetTokens(ctx, sess.ID, "access-3", "refresh-2")
	if sess.RefreshToken != "refresh-2" {
		t.Errorf("refresh token = %q, want refresh-2", sess.RefreshToken)
	}
}

func TestMemoryStore_SetUserID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, _ := store.Create(ctx)
	store.SetUserID(ctx, sess.ID, "user-1")

	if got := store.Get(ctx, sess.ID); got.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", got.UserID)
	}
}

func TestMemoryStore_PopReferrer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, _ := store.Create(ctx)
	store.SetReferrer(ctx, sess.ID, "/stats")

	if got := store.PopReferrer(ctx, sess.ID); got != "/stats" {
		t.Errorf("PopReferrer() = %q, want /stats", got)
	}
	// Popping clears the value.
	if got := store.PopReferrer(ctx, sess.ID); got != "" {
		t.Errorf("second PopReferrer() = %q, want empty", got)
	}
	if got := store.PopReferrer(ctx, "missing"); got != "" {
		t.Errorf("PopReferrer(missing) = %q, want empty", got)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, _ := store.Create(ctx)
	store.Delete(ctx, sess.ID)

	if got := store.Get(ctx, sess.ID); got != nil {
		t.Errorf("Get() after Delete = %v, want nil", got)
	}
}

func TestMemoryStore_CookieRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, _ := store.Create(ctx)

	rec := httptest.NewRecorder()
	store.SetCookie(rec, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	if got := store.GetFromRequest(req); got != sess {
		t.Errorf("GetFromRequest() = %v, want the created session", got)
	}

	// Clearing the cookie expires it.
	rec = httptest.NewRecorder()
	store.ClearCookie(rec)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("ClearCookie() cookies = %v, want one expired cookie", cookies)
	}
}

func TestAuthenticated_NilSession(t *testing.T) {
	var sess *Session
	if sess.Authenticated() {
		t.Error("nil session must not be authenticated")
	}
}
