package core

import (
	"errors"
	"fmt"
)

// User errors
var (
	ErrUserExists   = errors.New("user already exists") // 409 Conflict
	ErrUserNotFound = errors.New("user not found")      // 404 Not Found
	ErrAccessDenied = errors.New("user is not allowed") // 403
)

// Session errors
var (
	ErrNoSession       = errors.New("no valid session")  // 401
	ErrSessionNotFound = errors.New("session not found") // 401
	ErrRefreshFailed   = errors.New("token refresh failed")
)

// OAuth errors
var (
	ErrStateMismatch     = errors.New("oauth state mismatch")
	ErrMissingCode       = errors.New("authorization code is missing")
	ErrTokenExchange     = errors.New("token exchange failed")
	ErrProfileFetch      = errors.New("profile fetch failed")
	ErrStorageSetup      = errors.New("storage is not usable")
	ErrIncompleteTokens  = errors.New("provider returned an incomplete token pair")
	ErrProviderRejection = errors.New("provider returned an error")
)

// Blocklist errors
var (
	ErrArtistIDRequired       = errors.New("artistId and name are required") // 400
	ErrArtistAlreadyBlocked   = errors.New("artist already in blocklist")    // 409
	ErrBlockedArtistNotFound  = errors.New("blocked artist not found")       // 404
	ErrInvalidBlockedArtistID = errors.New("invalid id")                     // 400
)

// Generation errors
var (
	ErrNoSeeds            = errors.New("provide at least one seed artist, genre, playlist, or a text description (prompt)") // 400
	ErrSuggesterDisabled  = errors.New("ANTHROPIC_API_KEY is not set")                                                      // 503
	ErrQueryTooShort      = errors.New(`query "q" required (min 2 chars)`)                                                  // 400
	ErrPlaylistIDRequired = errors.New("missing playlist id")                                                               // 400
	ErrEmptyPlaylistName  = errors.New("playlist name cannot be empty")                                                     // 400
	ErrEmptyPlaylistEdit  = errors.New("provide at least one of name, description, or public")                              // 400
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired  = errors.New("storage adapter is required")   // 500
	ErrHTTPRequired     = errors.New("http adapter is required")      // 500
	ErrCatalogRequired  = errors.New("catalog client is required")    // 500
	ErrSecretRequired   = errors.New("session secret is required")    // 503
	ErrSecretTooShort   = errors.New("session secret too short")      // 500
	ErrIdentityRequired = errors.New("identity provider is required") // 503
)

// UpstreamError is a non-2xx answer from the catalog or identity API.
//
// Body holds the raw response text and is only surfaced by the proxy endpoints.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.Status)
}
