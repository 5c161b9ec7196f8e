package pgx

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/lborres/playlistify/core"
)

func (a *Adapter) CreateSession(ctx context.Context, s *core.Session) error {
	q := `INSERT INTO sessions (id, user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := a.exec(ctx, q, s.ID, s.UserID, s.AccessToken, s.RefreshToken, s.ExpiresAt.UTC(), s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	return err
}

func (a *Adapter) GetSessionByID(ctx context.Context, id string) (*core.Session, error) {
	q := `SELECT id, user_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM sessions WHERE id = $1`

	session := &core.Session{}
	err := a.get(ctx, session, q, id)
	if pgxscan.NotFound(err) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (a *Adapter) UpdateSessionTokens(ctx context.Context, id string, tokens core.TokenSet) error {
	q := `UPDATE sessions
		SET access_token = $2,
			refresh_token = COALESCE(NULLIF($3::text, ''), refresh_token),
			expires_at = $4,
			updated_at = now()
		WHERE id = $1`

	tag, err := a.exec(ctx, q, id, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (a *Adapter) DeleteSessionByID(ctx context.Context, id string) error {
	tag, err := a.exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	tag, err := a.exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error) {
	tag, err := a.exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
