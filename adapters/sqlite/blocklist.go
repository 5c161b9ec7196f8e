package sqlite

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/lborres/playlistify/core"
)

type blockedArtistRow struct {
	ID        int64  `db:"id"`
	UserID    string `db:"user_id"`
	ArtistID  string `db:"artist_id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
}

func (a *Adapter) ListBlockedArtists(ctx context.Context, userID string) ([]*core.BlockedArtist, error) {
	var rows []blockedArtistRow
	err := sqlscan.Select(ctx, a.db, &rows,
		`SELECT id, user_id, artist_id, name, created_at
		 FROM blocked_artists WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}

	artists := make([]*core.BlockedArtist, 0, len(rows))
	for _, r := range rows {
		artists = append(artists, &core.BlockedArtist{
			ID:        r.ID,
			UserID:    r.UserID,
			ArtistID:  r.ArtistID,
			Name:      r.Name,
			CreatedAt: fromMillis(r.CreatedAt),
		})
	}
	return artists, nil
}

func (a *Adapter) CreateBlockedArtist(ctx context.Context, artist *core.BlockedArtist) error {
	var id int64
	err := sqlscan.Get(ctx, a.db, &id,
		`INSERT INTO blocked_artists (user_id, artist_id, name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, artist_id) DO NOTHING
		 RETURNING id`,
		artist.UserID, artist.ArtistID, artist.Name, toMillis(artist.CreatedAt))
	if sqlscan.NotFound(err) {
		return core.ErrArtistAlreadyBlocked
	}
	if err != nil {
		return err
	}
	artist.ID = id
	return nil
}

func (a *Adapter) DeleteBlockedArtist(ctx context.Context, userID string, id int64) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM blocked_artists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrBlockedArtistNotFound)
}

// requireRow turns "no rows affected" into notFound.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
