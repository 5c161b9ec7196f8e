package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lborres/playlistify/core"
)

// FakeStorageProvider is a test-only fake implementing core.StorageProvider.
// It keeps rows in maps and exposes error fields for behavior injection.
type FakeStorageProvider struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	users    map[string]*core.User
	blocked  map[int64]*core.BlockedArtist
	nextID   int64

	CreateSessionErr error
	GetSessionErr    error
	UpdateSessionErr error
	DeleteSessionErr error
	GetUserErr       error
	CreateUserErr    error
	BlocklistErr     error

	// Updates counts UpdateSessionTokens calls that reached storage.
	Updates int
}

func NewFakeStorageProvider() *FakeStorageProvider {
	return &FakeStorageProvider{
		sessions: make(map[string]*core.Session),
		users:    make(map[string]*core.User),
		blocked:  make(map[int64]*core.BlockedArtist),
	}
}

var _ core.StorageProvider = (*FakeStorageProvider)(nil)

// SessionStorage implementation

func (f *FakeStorageProvider) CreateSession(_ context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateSessionErr != nil {
		return f.CreateSessionErr
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *FakeStorageProvider) GetSessionByID(_ context.Context, id string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.GetSessionErr != nil {
		return nil, f.GetSessionErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *FakeStorageProvider) UpdateSessionTokens(_ context.Context, id string, tokens core.TokenSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateSessionErr != nil {
		return f.UpdateSessionErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return core.ErrSessionNotFound
	}
	s.AccessToken = tokens.AccessToken
	s.ExpiresAt = tokens.ExpiresAt
	if tokens.RefreshToken != "" {
		s.RefreshToken = tokens.RefreshToken
	}
	s.UpdatedAt = time.Now()
	f.Updates++
	return nil
}

func (f *FakeStorageProvider) DeleteSessionByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteSessionErr != nil {
		return f.DeleteSessionErr
	}
	if _, ok := f.sessions[id]; !ok {
		return core.ErrSessionNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *FakeStorageProvider) DeleteUserSessions(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteSessionErr != nil {
		return 0, f.DeleteSessionErr
	}
	count := 0
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

func (f *FakeStorageProvider) DeleteExpiredSessions(_ context.Context, before time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteSessionErr != nil {
		return 0, f.DeleteSessionErr
	}
	count := 0
	for id, s := range f.sessions {
		if s.ExpiresAt.Before(before) {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

// Sessions returns a snapshot of all stored sessions.
func (f *FakeStorageProvider) Sessions() []core.Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out
}

// UserStorage implementation

func (f *FakeStorageProvider) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateUserErr != nil {
		return f.CreateUserErr
	}
	for _, existing := range f.users {
		if existing.ExternalID == u.ExternalID {
			return core.ErrUserExists
		}
	}
	if _, exists := f.users[u.ID]; exists {
		return core.ErrUserExists
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *FakeStorageProvider) GetUserByID(_ context.Context, id string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.GetUserErr != nil {
		return nil, f.GetUserErr
	}
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorageProvider) GetUserByExternalID(_ context.Context, externalID string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.GetUserErr != nil {
		return nil, f.GetUserErr
	}
	for _, u := range f.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrUserNotFound
}

// Users returns a snapshot of all stored users.
func (f *FakeStorageProvider) Users() []core.User {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out
}

// BlocklistStorage implementation

func (f *FakeStorageProvider) ListBlockedArtists(_ context.Context, userID string) ([]*core.BlockedArtist, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.BlocklistErr != nil {
		return nil, f.BlocklistErr
	}
	var out []*core.BlockedArtist
	for id := int64(1); id <= f.nextID; id++ {
		if a, ok := f.blocked[id]; ok && a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeStorageProvider) CreateBlockedArtist(_ context.Context, a *core.BlockedArtist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BlocklistErr != nil {
		return f.BlocklistErr
	}
	for _, existing := range f.blocked {
		if existing.UserID == a.UserID && existing.ArtistID == a.ArtistID {
			return core.ErrArtistAlreadyBlocked
		}
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.blocked[a.ID] = &cp
	return nil
}

func (f *FakeStorageProvider) DeleteBlockedArtist(_ context.Context, userID string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BlocklistErr != nil {
		return f.BlocklistErr
	}
	a, ok := f.blocked[id]
	if !ok || a.UserID != userID {
		return core.ErrBlockedArtistNotFound
	}
	delete(f.blocked, id)
	return nil
}

// FakeIdentityProvider is a test-only fake implementing core.IdentityProvider.
type FakeIdentityProvider struct {
	mu sync.Mutex

	Tokens      *core.TokenSet
	Refreshed   *core.TokenSet
	Profile     *core.Profile
	ExchangeErr error
	RefreshErr  error
	ProfileErr  error

	ExchangeCalls int
	RefreshCalls  int
	// LastCode and LastRefreshToken record the most recent arguments.
	LastCode         string
	LastRefreshToken string
}

var _ core.IdentityProvider = (*FakeIdentityProvider)(nil)

func (f *FakeIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.test/authorize?state=" + state
}

func (f *FakeIdentityProvider) Exchange(_ context.Context, code string) (*core.TokenSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExchangeCalls++
	f.LastCode = code
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	cp := *f.Tokens
	return &cp, nil
}

func (f *FakeIdentityProvider) Refresh(_ context.Context, refreshToken string) (*core.TokenSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RefreshCalls++
	f.LastRefreshToken = refreshToken
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	cp := *f.Refreshed
	return &cp, nil
}

func (f *FakeIdentityProvider) FetchProfile(_ context.Context, _ string) (*core.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ProfileErr != nil {
		return nil, f.ProfileErr
	}
	cp := *f.Profile
	return &cp, nil
}

// FakeCatalog is a test-only fake implementing core.Catalog.
//
// Tracks maps "artist|track" to the search result; unknown pairs match nothing.
type FakeCatalog struct {
	mu sync.Mutex

	Tracks    map[string]*core.Track
	SearchErr error

	// Err is returned by every call other than SearchTrack and AddTracks.
	Err error

	// AddErrAfter makes AddTracks fail once this many batches succeeded; 0 disables.
	AddErrAfter int

	PlaylistItems []json.RawMessage
	Summaries     []core.TrackSummary
	Raw           json.RawMessage
	Created       *core.Playlist

	Added        [][]string
	Updated      []core.PlaylistUpdate
	Unfollowed   []string
	CreatedOwner string
	CreatedName  string
	LastQuery    string
	LastTypes    string
}

var _ core.Catalog = (*FakeCatalog)(nil)

func (f *FakeCatalog) SearchTrack(_ context.Context, _ string, artist, track string) (*core.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	t, ok := f.Tracks[artist+"|"+track]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *FakeCatalog) Search(_ context.Context, _ string, query, types string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastQuery, f.LastTypes = query, types
	return f.Raw, f.Err
}

func (f *FakeCatalog) ListPlaylists(context.Context, string) ([]json.RawMessage, error) {
	return f.PlaylistItems, f.Err
}

func (f *FakeCatalog) PlaylistTracks(context.Context, string, string) ([]core.TrackSummary, error) {
	return f.Summaries, f.Err
}

func (f *FakeCatalog) UpdatePlaylist(_ context.Context, _ string, _ string, update core.PlaylistUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Updated = append(f.Updated, update)
	return nil
}

func (f *FakeCatalog) UnfollowPlaylist(_ context.Context, _ string, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Unfollowed = append(f.Unfollowed, playlistID)
	return nil
}

func (f *FakeCatalog) CreatePlaylist(_ context.Context, _ string, ownerID, name string) (*core.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.CreatedOwner, f.CreatedName = ownerID, name
	cp := *f.Created
	return &cp, nil
}

func (f *FakeCatalog) AddTracks(_ context.Context, _ string, _ string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AddErrAfter > 0 && len(f.Added) >= f.AddErrAfter {
		return &core.UpstreamError{Status: 403, Body: "forbidden"}
	}
	f.Added = append(f.Added, append([]string(nil), uris...))
	return nil
}

func (f *FakeCatalog) RecentlyPlayed(context.Context, string) (json.RawMessage, error) {
	return f.Raw, f.Err
}

func (f *FakeCatalog) GenreSeeds(context.Context, string) (json.RawMessage, error) {
	return f.Raw, f.Err
}

// FakeSuggester is a test-only fake implementing core.Suggester.
type FakeSuggester struct {
	mu sync.Mutex

	Reply string
	Err   error

	LastSystem string
	LastPrompt string
}

var _ core.Suggester = (*FakeSuggester)(nil)

func (f *FakeSuggester) Suggest(_ context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastSystem, f.LastPrompt = system, prompt
	return f.Reply, f.Err
}
