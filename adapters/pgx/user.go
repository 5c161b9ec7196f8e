package pgx

import (
	"context"
	"errors"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/playlistify/core"
)

const userColumns = `id, external_id, display_name, image_url, created_at`

// CreateUser inserts u. A second row for the same external id is refused
// with core.ErrUserExists.
func (a *Adapter) CreateUser(ctx context.Context, u *core.User) error {
	q := `INSERT INTO users (id, external_id, display_name, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING created_at`

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	err := a.pool.QueryRow(ctx, q, u.ID, u.ExternalID, u.DisplayName, u.ImageURL, u.CreatedAt.UTC()).Scan(&u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrUserExists
	}
	return err
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	user := &core.User{}
	err := a.get(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if pgxscan.NotFound(err) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *Adapter) GetUserByExternalID(ctx context.Context, externalID string) (*core.User, error) {
	user := &core.User{}
	err := a.get(ctx, user, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID)
	if pgxscan.NotFound(err) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
