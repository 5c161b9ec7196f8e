package core

import "time"

// User represents a person known to the system
//
// Exactly one row exists per external (provider) identity
type User struct {
	ID          string    `json:"id" db:"id"`
	ExternalID  string    `json:"externalId" db:"external_id"`
	DisplayName *string   `json:"displayName" db:"display_name"`
	ImageURL    *string   `json:"imageUrl" db:"image_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Session represents an active browser login
//
// It binds the session cookie to a user and the delegated token pair
type Session struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"userId" db:"user_id"`
	AccessToken  string    `json:"-" db:"access_token"`  // Never expose in JSON
	RefreshToken string    `json:"-" db:"refresh_token"` // Never expose in JSON
	ExpiresAt    time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Expired reports whether the access token must no longer be used at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// TokenSet is a delegated credential pair as returned by the identity provider.
type TokenSet struct {
	AccessToken  string
	RefreshToken string // empty when the provider did not issue (or rotate) one
	ExpiresAt    time.Time
}

// Principal is what protected operations receive once a request is authenticated.
type Principal struct {
	SessionID   string
	UserID      string
	AccessToken string
}

// Profile is the caller's identity as reported by the provider.
type Profile struct {
	ExternalID  string
	DisplayName *string
	ImageURL    *string
}

// BlockedArtist is an artist the user never wants in a generated playlist.
type BlockedArtist struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	ArtistID  string    `json:"artistId" db:"artist_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Track is a catalog track resolved from a search.
type Track struct {
	URI       string   `json:"uri"`
	Name      string   `json:"name"`
	Artists   string   `json:"artists"`
	ArtistIDs []string `json:"artistIds"`
	Album     string   `json:"album,omitempty"`
}

// TrackSummary is the short form of a playlist entry.
type TrackSummary struct {
	Name    string `json:"name"`
	Artists string `json:"artists"`
}

// Playlist is a newly created catalog playlist.
type Playlist struct {
	ID  string `json:"playlistId"`
	URL string `json:"url,omitempty"`
}

// PlaylistUpdate carries the optional fields of a playlist edit.
type PlaylistUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Public      *bool   `json:"public,omitempty"`
}

// SeedPlaylist is an existing playlist used as a style reference.
type SeedPlaylist struct {
	Name         string `json:"name"`
	TrackSummary string `json:"trackSummary"`
}

// GenerateInput asks for a playlist in the style of the given seeds.
type GenerateInput struct {
	SeedArtists   []string       `json:"seedArtists"`
	SeedGenres    []string       `json:"seedGenres"`
	SeedPlaylists []SeedPlaylist `json:"seedPlaylists"`
	Prompt        string         `json:"prompt"`
	Limit         int            `json:"limit"`
}
