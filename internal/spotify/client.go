// Package spotify provides an authenticated HTTP layer over the Spotify Web
// API. The client attaches the session's access token to every call,
// refreshes it through the token endpoint when the API answers 401, and
// retries the failed call exactly once.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/shahhh-z/YourSpotifyTopStats/internal/session"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// Sentinel errors.
var (
	// ErrNoRefreshToken is returned when a refresh is needed but the session
	// holds no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token in session")

	// ErrTokenExchange is returned when the token endpoint call fails or
	// yields no usable access token.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrReauthRequired is returned when a call came back 401 and the token
	// could not be refreshed. The only recovery is a full re-login.
	ErrReauthRequired = errors.New("authorization expired and could not be refreshed")
)

// Config holds the credentials and endpoints for the client.
type Config struct {
	ClientID     string
	ClientSecret string

	// BaseURL and TokenURL default to the public Spotify endpoints.
	// Overridable for tests.
	BaseURL  string
	TokenURL string
}

// Client issues authenticated requests against the Spotify Web API on behalf
// of a session. Refreshed tokens are written back to the session store so
// later requests in the same session reuse them.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	httpClient   *http.Client
	sessions     session.Store
	log          zerolog.Logger
}

// NewClient creates a Client backed by the given session store.
func NewClient(cfg Config, sessions session.Store, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      baseURL,
		tokenURL:     tokenURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		sessions: sessions,
		log:      log,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is the outcome of an API call. Any HTTP status is a valid
// Response; interpreting non-2xx statuses is the caller's job.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Get issues an authenticated GET against an absolute API URL.
func (c *Client) Get(ctx context.Context, sess *session.Session, rawURL string) (*Response, error) {
	return c.do(ctx, sess, http.MethodGet, rawURL, nil)
}

// Post issues an authenticated POST with a JSON body against an absolute API
// URL.
func (c *Client) Post(ctx context.Context, sess *session.Session, rawURL string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return c.do(ctx, sess, http.MethodPost, rawURL, payload)
}

// do runs one call with the session's current access token. A 401 triggers
// at most one token refresh and, on success, one retry with the original
// method and body. The retried response is returned as-is even if it is 401
// again. Transport errors surface to the caller untouched.
func (c *Client) do(ctx context.Context, sess *session.Session, method, rawURL string, payload []byte) (*Response, error) {
	resp, err := c.send(ctx, method, rawURL, payload, sess.AccessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	token, err := c.refreshToken(ctx, sess)
	if err != nil {
		c.log.Warn().Err(err).Str("url", rawURL).Msg("failed to refresh token")
		return nil, fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}

	return c.send(ctx, method, rawURL, payload, token)
}

// send issues a single HTTP call with the given bearer token.
func (c *Client) send(ctx context.Context, method, rawURL string, payload []byte, token string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: b}, nil
}

// refreshToken exchanges the session's refresh token for a new access token
// and persists it. When the endpoint rotates the refresh token, the rotated
// one is persisted as well; otherwise the old one stays. On failure the
// session is left untouched.
func (c *Client) refreshToken(ctx context.Context, sess *session.Session) (string, error) {
	if sess.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {sess.RefreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrTokenExchange, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrTokenExchange, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrTokenExchange, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in response", ErrTokenExchange)
	}

	sess.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		sess.RefreshToken = tok.RefreshToken
	}
	c.sessions.SetTokens(ctx, sess.ID, tok.AccessToken, tok.RefreshToken)

	return tok.AccessToken, nil
}

// UserID returns the session's Spotify user ID, fetching the profile once
// and caching the result for the lifetime of the session.
func (c *Client) UserID(ctx context.Context, sess *session.Session) (string, error) {
	if sess.UserID != "" {
		return sess.UserID, nil
	}

	resp, err := c.Get(ctx, sess, c.baseURL+"/me")
	if err != nil {
		return "", fmt.Errorf("fetching profile: %w", err)
	}

	var user User
	if err := resp.JSON(&user); err != nil {
		return "", fmt.Errorf("parsing profile: %w", err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("profile response missing id (status %d)", resp.StatusCode)
	}

	sess.UserID = user.ID
	c.sessions.SetUserID(ctx, sess.ID, user.ID)

	return user.ID, nil
}
