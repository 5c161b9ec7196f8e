package sqlite

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/lborres/playlistify/core"
)

type sessionRow struct {
	ID           string `db:"id"`
	UserID       string `db:"user_id"`
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
	ExpiresAt    int64  `db:"expires_at"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (a *Adapter) CreateSession(ctx context.Context, s *core.Session) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.AccessToken, s.RefreshToken,
		toMillis(s.ExpiresAt), toMillis(s.CreatedAt), toMillis(s.UpdatedAt))
	return err
}

func (a *Adapter) GetSessionByID(ctx context.Context, id string) (*core.Session, error) {
	var row sessionRow
	err := sqlscan.Get(ctx, a.db, &row,
		`SELECT id, user_id, access_token, refresh_token, expires_at, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)
	if sqlscan.NotFound(err) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return &core.Session{
		ID:           row.ID,
		UserID:       row.UserID,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    fromMillis(row.ExpiresAt),
		CreatedAt:    fromMillis(row.CreatedAt),
		UpdatedAt:    fromMillis(row.UpdatedAt),
	}, nil
}

func (a *Adapter) UpdateSessionTokens(ctx context.Context, id string, tokens core.TokenSet) error {
	res, err := a.db.ExecContext(ctx,
		`UPDATE sessions
		 SET access_token = ?,
		     refresh_token = COALESCE(NULLIF(?, ''), refresh_token),
		     expires_at = ?,
		     updated_at = ?
		 WHERE id = ?`,
		tokens.AccessToken, tokens.RefreshToken, toMillis(tokens.ExpiresAt), toMillis(time.Now()), id)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrSessionNotFound)
}

func (a *Adapter) DeleteSessionByID(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrSessionNotFound)
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
