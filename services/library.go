package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lborres/playlistify/core"
)

const (
	defaultSearchTypes  = "artist,track"
	defaultPlaylistName = "New Playlist"
	// addTracksBatchSize is the most URIs the catalog accepts per add call.
	addTracksBatchSize = 100
)

// LibraryService is the user's view of the catalog: search, playlists and history.
type LibraryService struct {
	catalog core.Catalog
	users   core.UserStorage
}

func NewLibraryService(catalog core.Catalog, users core.UserStorage) *LibraryService {
	return &LibraryService{catalog: catalog, users: users}
}

func (s *LibraryService) Me(ctx context.Context, p *core.Principal) (*core.User, error) {
	return s.users.GetUserByID(ctx, p.UserID)
}

func (s *LibraryService) Search(ctx context.Context, p *core.Principal, query, types string) (json.RawMessage, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, core.ErrQueryTooShort
	}
	if types == "" {
		types = defaultSearchTypes
	}
	return s.catalog.Search(ctx, p.AccessToken, query, types)
}

func (s *LibraryService) Playlists(ctx context.Context, p *core.Principal) ([]json.RawMessage, error) {
	items, err := s.catalog.ListPlaylists(ctx, p.AccessToken)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, nil
}

func (s *LibraryService) PlaylistTracks(ctx context.Context, p *core.Principal, playlistID string) ([]core.TrackSummary, error) {
	if playlistID == "" {
		return nil, core.ErrPlaylistIDRequired
	}
	tracks, err := s.catalog.PlaylistTracks(ctx, p.AccessToken, playlistID)
	if err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []core.TrackSummary{}
	}
	return tracks, nil
}

// EditPlaylist applies the fields present in update. A present name must not be blank.
func (s *LibraryService) EditPlaylist(ctx context.Context, p *core.Principal, playlistID string, update core.PlaylistUpdate) error {
	if playlistID == "" {
		return core.ErrPlaylistIDRequired
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return core.ErrEmptyPlaylistName
		}
		update.Name = &name
	}
	if update.Name == nil && update.Description == nil && update.Public == nil {
		return core.ErrEmptyPlaylistEdit
	}
	return s.catalog.UpdatePlaylist(ctx, p.AccessToken, playlistID, update)
}

func (s *LibraryService) UnfollowPlaylist(ctx context.Context, p *core.Principal, playlistID string) error {
	if playlistID == "" {
		return core.ErrPlaylistIDRequired
	}
	return s.catalog.UnfollowPlaylist(ctx, p.AccessToken, playlistID)
}

// CreatePlaylist creates a private playlist owned by the caller and fills it
// with trackURIs in catalog-sized batches.
func (s *LibraryService) CreatePlaylist(ctx context.Context, p *core.Principal, name string, trackURIs []string) (*core.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultPlaylistName
	}

	user, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	playlist, err := s.catalog.CreatePlaylist(ctx, p.AccessToken, user.ExternalID, name)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(trackURIs); start += addTracksBatchSize {
		end := min(start+addTracksBatchSize, len(trackURIs))
		if err := s.catalog.AddTracks(ctx, p.AccessToken, playlist.ID, trackURIs[start:end]); err != nil {
			var upstream *core.UpstreamError
			if errors.As(err, &upstream) {
				return nil, &core.UpstreamError{
					Status: upstream.Status,
					Body:   "Playlist created but adding tracks failed: " + upstream.Body,
				}
			}
			return nil, fmt.Errorf("failed to add tracks: %w", err)
		}
	}

	return playlist, nil
}

func (s *LibraryService) RecentlyPlayed(ctx context.Context, p *core.Principal) (json.RawMessage, error) {
	return s.catalog.RecentlyPlayed(ctx, p.AccessToken)
}

func (s *LibraryService) GenreSeeds(ctx context.Context, p *core.Principal) (json.RawMessage, error) {
	return s.catalog.GenreSeeds(ctx, p.AccessToken)
}
