package pgx

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/lborres/playlistify/core"
)

func (a *Adapter) ListBlockedArtists(ctx context.Context, userID string) ([]*core.BlockedArtist, error) {
	var artists []*core.BlockedArtist
	err := a.selectAll(ctx, &artists, `SELECT id, user_id, artist_id, name, created_at
		FROM blocked_artists WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return artists, nil
}

// CreateBlockedArtist inserts a and fills its id. Blocking the same artist
// twice yields core.ErrArtistAlreadyBlocked.
func (a *Adapter) CreateBlockedArtist(ctx context.Context, artist *core.BlockedArtist) error {
	q := `INSERT INTO blocked_artists (user_id, artist_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, artist_id) DO NOTHING
		RETURNING id, created_at`

	err := a.get(ctx, artist, q, artist.UserID, artist.ArtistID, artist.Name, artist.CreatedAt.UTC())
	if pgxscan.NotFound(err) {
		return core.ErrArtistAlreadyBlocked
	}
	return err
}

func (a *Adapter) DeleteBlockedArtist(ctx context.Context, userID string, id int64) error {
	tag, err := a.exec(ctx, `DELETE FROM blocked_artists WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrBlockedArtistNotFound
	}
	return nil
}
