package db

import "time"

// Session represents an authenticated web session.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	ReferrerURL  string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}
