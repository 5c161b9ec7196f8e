// Package storetest checks that a core.StorageProvider honours the token
// store contract. Every storage adapter runs it against a real database.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lborres/playlistify/core"
)

// Run exercises a fresh, migrated store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) core.StorageProvider) {
	t.Helper()

	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("token update keeps refresh token", func(t *testing.T) { testTokenUpdate(t, newStore(t)) })
	t.Run("expired session pruning", func(t *testing.T) { testPrune(t, newStore(t)) })
	t.Run("blocklist", func(t *testing.T) { testBlocklist(t, newStore(t)) })
	t.Run("sessions are scoped per user", func(t *testing.T) { testUserScope(t, newStore(t)) })
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func mustCreateUser(t *testing.T, store core.StorageProvider, id, externalID string) *core.User {
	t.Helper()
	u := &core.User{ID: id, ExternalID: externalID, DisplayName: strPtr("Ada"), CreatedAt: base}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%q) error = %v", id, err)
	}
	return u
}

func mustCreateSession(t *testing.T, store core.StorageProvider, id, userID string, expiresAt time.Time) {
	t.Helper()
	s := &core.Session{
		ID: id, UserID: userID, AccessToken: "at-" + id, RefreshToken: "rt-" + id,
		ExpiresAt: expiresAt, CreatedAt: base, UpdatedAt: base,
	}
	if err := store.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("CreateSession(%q) error = %v", id, err)
	}
}

func testUsers(t *testing.T, store core.StorageProvider) {
	ctx := context.Background()
	mustCreateUser(t, store, "u1", "spotify-1")

	byID, err := store.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.ExternalID != "spotify-1" || byID.DisplayName == nil || *byID.DisplayName != "Ada" || byID.ImageURL != nil {
		t.Errorf("GetUserByID() = %+v", byID)
	}
	if !byID.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", byID.CreatedAt, base)
	}

	byExternal, err := store.GetUserByExternalID(ctx, "spotify-1")
	if err != nil {
		t.Fatalf("GetUserByExternalID() error = %v", err)
	}
	if byExternal.ID != "u1" {
		t.Errorf("GetUserByExternalID().ID = %q, want u1", byExternal.ID)
	}

	// One row per external identity
	err = store.CreateUser(ctx, &core.User{ID: "u2", ExternalID: "spotify-1", CreatedAt: base})
	if !errors.Is(err, core.ErrUserExists) {
		t.Errorf("duplicate external id error = %v, want ErrUserExists", err)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.GetUserByExternalID(ctx, "missing"); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("GetUserByExternalID(missing) error = %v, want ErrUserNotFound", err)
	}
}

func testSessions(t *testing.T, store core.StorageProvider) {
	ctx := context.Background()
	mustCreateUser(t, store, "u1", "spotify-1")
	mustCreateSession(t, store, "s1", "u1", base.Add(time.Hour))
	mustCreateSession(t, store, "s2", "u1", base.Add(time.Hour))

	got, err := store.GetSessionByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionByID() error = %v", err)
	}
	if got.UserID != "u1" || got.AccessToken != "at-s1" || got.RefreshToken != "rt-s1" {
		t.Errorf("GetSessionByID() = %+v", got)
	}
	if !got.ExpiresAt.Equal(base.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, base.Add(time.Hour))
	}

	if _, err := store.GetSessionByID(ctx, "missing"); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("GetSessionByID(missing) error = %v, want ErrSessionNotFound", err)
	}

	if err := store.DeleteSessionByID(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSessionByID() error = %v", err)
	}
	if err := store.DeleteSessionByID(ctx, "s1"); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("second DeleteSessionByID() error = %v, want ErrSessionNotFound", err)
	}

	n, err := store.DeleteUserSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("DeleteUserSessions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteUserSessions() = %d, want 1", n)
	}
}

func testTokenUpdate(t *testing.T, store core.StorageProvider) {
	ctx := context.Background()
	mustCreateUser(t, store, "u1", "spotify-1")
	mustCreateSession(t, store, "s1", "u1", base)

	// Not rotated
	err := store.UpdateSessionTokens(ctx, "s1", core.TokenSet{AccessToken: "at-2", ExpiresAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("UpdateSessionTokens() error = %v", err)
	}
	got, _ := store.GetSessionByID(ctx, "s1")
	if got.AccessToken != "at-2" || got.RefreshToken != "rt-s1" || !got.ExpiresAt.Equal(base.Add(time.Hour)) {
		t.Errorf("after update = %q/%q/%v", got.AccessToken, got.RefreshToken, got.ExpiresAt)
	}

	// Rotated
	err = store.UpdateSessionTokens(ctx, "s1", core.TokenSet{AccessToken: "at-3", RefreshToken: "rt-3", ExpiresAt: base.Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("UpdateSessionTokens() error = %v", err)
	}
	got, _ = store.GetSessionByID(ctx, "s1")
	if got.AccessToken != "at-3" || got.RefreshToken != "rt-3" {
		t.Errorf("after rotation = %q/%q", got.AccessToken, got.RefreshToken)
	}

	err = store.UpdateSessionTokens(ctx, "missing", core.TokenSet{AccessToken: "x", ExpiresAt: base})
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("UpdateSessionTokens(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func testPrune(t *testing.T, store core.StorageProvider) {
	ctx := context.Background()
	mustCreateUser(t, store, "u1", "spotify-1")
	mustCreateSession(t, store, "old", "u1", base.Add(-48*time.Hour))
	mustCreateSession(t, store, "recent", "u1", base.Add(-time.Hour))
	mustCreateSession(t, store, "live", "u1", base.Add(time.Hour))

	n, err := store.DeleteExpiredSessions(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpiredSessions() = %d, want 1", n)
	}
	if _, err := store.GetSessionByID(ctx, "old"); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("old session survived pruning (err = %v)", err)
	}
	for _, id := range []string{"recent", "live"} {
		if _, err := store.GetSessionByID(ctx, id); err != nil {
			t.Errorf("session %q pruned: %v", id, err)
		}
	}
}

func testBlocklist(t *testing.T, store core.StorageProvider) {
	ctx := context.Background()
	mustCreateUser(t, store, "u1", "spotify-1")
	mustCreateUser(t, store, "u2", "spotify-2")

	empty, err := store.ListBlockedArtists(ctx, "u1")
	if err != nil {
		t.Fatalf("ListBlockedArtists() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListBlockedArtists() on empty = %d rows", len(empty))
	}

	first := &core.BlockedArtist{UserID: "u1", ArtistID: "a1", Name: "One", CreatedAt: base}
	if err := store.CreateBlockedArtist(ctx, first); err != nil {
		t.Fatalf("CreateBlockedArtist() error = %v", err)
	}
	if first.ID == 0 {
		t.Error("CreateBlockedArtist() did not fill the id")
	}
	second := &core.BlockedArtist{UserID: "u1", ArtistID: "a2", Name: "Two", CreatedAt: base}
	if err := store.CreateBlockedArtist(ctx, second); err != nil {
		t.Fatalf("CreateBlockedArtist() error = %v", err)
	}
	if err := store.CreateBlockedArtist(ctx, &core.BlockedArtist{UserID: "u2", ArtistID: "a1", Name: "One", CreatedAt: base}); err != nil {
		t.Fatalf("CreateBlockedArtist() for another user error = %v", err)
	}

	dup := &core.BlockedArtist{UserID: "u1", ArtistID: "a1", Name: "One again", CreatedAt: base}
	if err := store.CreateBlockedArtist(ctx, dup); !errors.Is(err, core.ErrArtistAlreadyBlocked) {
		t.Errorf("duplicate CreateBlockedArtist() error = %v, want ErrArtistAlreadyBlocked", err)
	}

	list, err := store.ListBlockedArtists(ctx, "u1")
	if err != nil {
		t.Fatalf("ListBlockedArtists() error = %v", err)
	}
	if len(list) != 2 || list[0].ArtistID != "a1" || list[1].ArtistID != "a2" {
		t.Errorf("ListBlockedArtists() = %+v", list)
	}

	if err := store.DeleteBlockedArtist(ctx, "u2", first.ID); !errors.Is(err, core.ErrBlockedArtistNotFound) {
		t.Errorf("DeleteBlockedArtist() of another user's row error = %v, want ErrBlockedArtistNotFound", err)
	}
	if err := store.DeleteBlockedArtist(ctx, "u1", first.ID); err != nil {
		t.Errorf("DeleteBlockedArtist() error = %v", err)
	}
	if err := store.DeleteBlockedArtist(ctx, "u1", first.ID); !errors.Is(err, core.ErrBlockedArtistNotFound) {
		t.Errorf("second DeleteBlockedArtist() error = %v, want ErrBlockedArtistNotFound", err)
	}
}

func testUserScope(t *testing.T, store core.StorageProvider) {
	ctx := context.Background()
	mustCreateUser(t, store, "u1", "spotify-1")
	mustCreateUser(t, store, "u2", "spotify-2")
	mustCreateSession(t, store, "s1", "u1", base)
	mustCreateSession(t, store, "s2", "u2", base)

	n, err := store.DeleteUserSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("DeleteUserSessions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteUserSessions() = %d, want 1", n)
	}
	if _, err := store.GetSessionByID(ctx, "s2"); err != nil {
		t.Errorf("other user's session deleted: %v", err)
	}
}
