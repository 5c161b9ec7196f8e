package services

import (
	"context"
	"errors"
	"testing"

	"github.com/lborres/playlistify/core"
)

func TestBlocklistService_Add(t *testing.T) {
	tests := []struct {
		name     string
		artistID string
		artist   string
		wantErr  error
	}{
		{name: "adds artist", artistID: "4Z8W4fKeB5YxbusRsdQVPb", artist: "Radiohead"},
		{name: "trims input", artistID: "  4Z8W4fKeB5YxbusRsdQVPb ", artist: " Radiohead "},
		{name: "missing artist id", artistID: "", artist: "Radiohead", wantErr: core.ErrArtistIDRequired},
		{name: "blank name", artistID: "4Z8W4fKeB5YxbusRsdQVPb", artist: "   ", wantErr: core.ErrArtistIDRequired},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			svc := NewBlocklistService(NewFakeStorageProvider())

			// Act
			artist, err := svc.Add(context.Background(), "user-1", test.artistID, test.artist)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("Add() error = %v, want %v", err, test.wantErr)
			}
			if test.wantErr != nil {
				return
			}
			if artist.ID == 0 {
				t.Error("Add() returned row without id")
			}
			if artist.ArtistID != "4Z8W4fKeB5YxbusRsdQVPb" || artist.Name != "Radiohead" {
				t.Errorf("Add() = %+v", artist)
			}
		})
	}
}

// Requirement: an artist can be blocked once per user.
func TestBlocklistService_Add_Duplicate(t *testing.T) {
	// Arrange
	svc := NewBlocklistService(NewFakeStorageProvider())
	if _, err := svc.Add(context.Background(), "user-1", "a1", "Artist"); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}

	// Act
	_, err := svc.Add(context.Background(), "user-1", "a1", "Artist")
	_, otherUserErr := svc.Add(context.Background(), "user-2", "a1", "Artist")

	// Assert
	if !errors.Is(err, core.ErrArtistAlreadyBlocked) {
		t.Errorf("duplicate Add() error = %v, want ErrArtistAlreadyBlocked", err)
	}
	if otherUserErr != nil {
		t.Errorf("Add() for another user error = %v, want nil", otherUserErr)
	}
}

func TestBlocklistService_List(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	svc := NewBlocklistService(storage)

	// Act
	empty, err := svc.List(context.Background(), "user-1")

	// Assert
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("List() on empty blocklist = %#v, want empty non-nil slice", empty)
	}

	_, _ = svc.Add(context.Background(), "user-1", "a1", "One")
	_, _ = svc.Add(context.Background(), "user-1", "a2", "Two")
	_, _ = svc.Add(context.Background(), "user-2", "a3", "Three")

	list, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List() returned %d rows, want 2", len(list))
	}

	storage.BlocklistErr = errors.New("boom")
	if _, err := svc.List(context.Background(), "user-1"); !errors.Is(err, storage.BlocklistErr) {
		t.Errorf("List() error = %v, want wrapped storage error", err)
	}
}

func TestBlocklistService_Remove(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		rawID   string
		wantErr error
	}{
		{name: "removes own row", userID: "user-1", rawID: "1"},
		{name: "not a number", userID: "user-1", rawID: "abc", wantErr: core.ErrInvalidBlockedArtistID},
		{name: "zero", userID: "user-1", rawID: "0", wantErr: core.ErrInvalidBlockedArtistID},
		{name: "unknown id", userID: "user-1", rawID: "99", wantErr: core.ErrBlockedArtistNotFound},
		{name: "someone else's row", userID: "user-2", rawID: "1", wantErr: core.ErrBlockedArtistNotFound},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			svc := NewBlocklistService(NewFakeStorageProvider())
			if _, err := svc.Add(context.Background(), "user-1", "a1", "One"); err != nil {
				t.Fatalf("Add() error = %v", err)
			}

			// Act
			err := svc.Remove(context.Background(), test.userID, test.rawID)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Errorf("Remove() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}
