package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lborres/playlistify/core"
)

// BlocklistService manages the artists a user never wants suggested.
type BlocklistService struct {
	storage core.BlocklistStorage
	now     func() time.Time
}

func NewBlocklistService(storage core.BlocklistStorage) *BlocklistService {
	return &BlocklistService{storage: storage, now: time.Now}
}

func (s *BlocklistService) List(ctx context.Context, userID string) ([]*core.BlockedArtist, error) {
	artists, err := s.storage.ListBlockedArtists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked artists: %w", err)
	}
	if artists == nil {
		artists = []*core.BlockedArtist{}
	}
	return artists, nil
}

// Add blocks an artist. Both the catalog artist id and a display name are required.
func (s *BlocklistService) Add(ctx context.Context, userID, artistID, name string) (*core.BlockedArtist, error) {
	artistID = strings.TrimSpace(artistID)
	name = strings.TrimSpace(name)
	if artistID == "" || name == "" {
		return nil, core.ErrArtistIDRequired
	}

	artist := &core.BlockedArtist{
		UserID:    userID,
		ArtistID:  artistID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.storage.CreateBlockedArtist(ctx, artist); err != nil {
		return nil, err
	}
	return artist, nil
}

// Remove unblocks the row named by rawID, which must be a positive integer.
func (s *BlocklistService) Remove(ctx context.Context, userID, rawID string) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return core.ErrInvalidBlockedArtistID
	}
	return s.storage.DeleteBlockedArtist(ctx, userID, id)
}

// blockedSet returns the blocked artist ids and names for filtering and prompting.
func (s *BlocklistService) blockedSet(ctx context.Context, userID string) (map[string]bool, []string, error) {
	artists, err := s.storage.ListBlockedArtists(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list blocked artists: %w", err)
	}
	ids := make(map[string]bool, len(artists))
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		ids[a.ArtistID] = true
		names = append(names, a.Name)
	}
	return ids, names, nil
}
