package spotify

// Response types for the subset of the Spotify Web API this application
// consumes. Fields the API omits decode to zero values, so callers never
// have to guard individual key lookups.

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Album represents a Spotify album as embedded in track objects.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
	URI    string  `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Album   Album    `json:"album"`
	Artists []Artist `json:"artists"`
	URI     string   `json:"uri"`
}

// User represents a Spotify user profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Playlist represents a Spotify playlist.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// tokenResponse is the token endpoint's reply to a refresh grant. The
// endpoint may rotate the refresh token; when it does, the new one is kept.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}
