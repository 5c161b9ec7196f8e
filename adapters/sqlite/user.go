package sqlite

import (
	"context"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/lborres/playlistify/core"
)

type userRow struct {
	ID          string  `db:"id"`
	ExternalID  string  `db:"external_id"`
	DisplayName *string `db:"display_name"`
	ImageURL    *string `db:"image_url"`
	CreatedAt   int64   `db:"created_at"`
}

func (r *userRow) toUser() *core.User {
	return &core.User{
		ID:          r.ID,
		ExternalID:  r.ExternalID,
		DisplayName: r.DisplayName,
		ImageURL:    r.ImageURL,
		CreatedAt:   fromMillis(r.CreatedAt),
	}
}

const userColumns = `id, external_id, display_name, image_url, created_at`

func (a *Adapter) CreateUser(ctx context.Context, u *core.User) error {
	var id string
	err := sqlscan.Get(ctx, a.db, &id,
		`INSERT INTO users (id, external_id, display_name, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING
		 RETURNING id`,
		u.ID, u.ExternalID, u.DisplayName, u.ImageURL, toMillis(u.CreatedAt))
	if sqlscan.NotFound(err) {
		return core.ErrUserExists
	}
	return err
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return a.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (a *Adapter) GetUserByExternalID(ctx context.Context, externalID string) (*core.User, error) {
	return a.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
}

func (a *Adapter) getUser(ctx context.Context, query string, arg string) (*core.User, error) {
	var row userRow
	err := sqlscan.Get(ctx, a.db, &row, query, arg)
	if sqlscan.NotFound(err) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toUser(), nil
}
