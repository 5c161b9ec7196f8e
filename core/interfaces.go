package core

import (
	"context"
	"encoding/json"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// SessionStorage defines session-related database operations
type SessionStorage interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByID(ctx context.Context, id string) (*Session, error)
	// UpdateSessionTokens replaces the access token and expiry in place.
	// An empty RefreshToken keeps the stored one.
	UpdateSessionTokens(ctx context.Context, id string, tokens TokenSet) error
	DeleteSessionByID(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) (int, error)
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error)
}

// UserStorage defines user-related database operations
type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
}

// BlocklistStorage defines blocked-artist database operations
type BlocklistStorage interface {
	ListBlockedArtists(ctx context.Context, userID string) ([]*BlockedArtist, error)
	CreateBlockedArtist(ctx context.Context, a *BlockedArtist) error
	DeleteBlockedArtist(ctx context.Context, userID string, id int64) error
}

type StorageProvider interface {
	UserStorage
	SessionStorage
	BlocklistStorage
}

// ============================================
// IDENTITY PORT (OAuth provider)
// ============================================

// TokenRefresher mints a new access token from a refresh token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)
}

// IdentityProvider drives the authorization-code flow against the provider.
type IdentityProvider interface {
	TokenRefresher
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*TokenSet, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// ============================================
// CATALOG PORT (music API)
// ============================================

// Catalog is the upstream music API, always called on behalf of a user.
type Catalog interface {
	// SearchTrack returns the best match or nil when nothing matched.
	SearchTrack(ctx context.Context, accessToken, artist, track string) (*Track, error)
	Search(ctx context.Context, accessToken, query, types string) (json.RawMessage, error)
	ListPlaylists(ctx context.Context, accessToken string) ([]json.RawMessage, error)
	PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]TrackSummary, error)
	UpdatePlaylist(ctx context.Context, accessToken, playlistID string, update PlaylistUpdate) error
	UnfollowPlaylist(ctx context.Context, accessToken, playlistID string) error
	CreatePlaylist(ctx context.Context, accessToken, ownerID, name string) (*Playlist, error)
	AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) error
	RecentlyPlayed(ctx context.Context, accessToken string) (json.RawMessage, error)
	GenreSeeds(ctx context.Context, accessToken string) (json.RawMessage, error)
}

// ============================================
// SUGGESTION PORT (language model)
// ============================================

// Suggester turns a structured prompt into free text.
type Suggester interface {
	Suggest(ctx context.Context, system, prompt string) (string, error)
}
