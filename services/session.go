package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lborres/playlistify/core"
	"github.com/lborres/playlistify/pkg/crypto"
)

// SessionResolver maps a session cookie to a principal, refreshing the
// delegated access token when it has expired.
type SessionResolver struct {
	config    core.SessionConfig
	storage   core.SessionStorage
	refresher core.TokenRefresher
	signer    *crypto.Signer
	metrics   *Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewSessionResolver(
	config core.SessionConfig,
	storage core.SessionStorage,
	refresher core.TokenRefresher,
	signer *crypto.Signer,
	metrics *Metrics,
	logger zerolog.Logger,
) *SessionResolver {
	return &SessionResolver{
		config:    config.WithDefaults(),
		storage:   storage,
		refresher: refresher,
		signer:    signer,
		metrics:   metrics,
		logger:    logger.With().Str("component", "session").Logger(),
		now:       time.Now,
	}
}

// MaxAge is the lifetime of the session cookie.
func (r *SessionResolver) MaxAge() time.Duration {
	return r.config.MaxAge
}

// Create persists a session holding a complete token pair and returns it
// together with the signed cookie value.
func (r *SessionResolver) Create(ctx context.Context, userID string, tokens core.TokenSet) (*core.Session, string, error) {
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return nil, "", core.ErrIncompleteTokens
	}

	sessionID, err := crypto.NewSessionID()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session id: %w", err)
	}

	now := r.now()
	session := &core.Session{
		ID:           sessionID,
		UserID:       userID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.storage.CreateSession(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	return session, r.signer.BuildEnvelope(session.ID), nil
}

// Resolve returns the principal behind a session cookie.
//
// Invalid envelopes, unknown sessions and failed refreshes yield
// core.ErrNoSession. Other storage errors are returned unchanged.
func (r *SessionResolver) Resolve(ctx context.Context, envelope string) (*core.Principal, error) {
	sessionID, ok := r.signer.ParseEnvelope(envelope)
	if !ok || sessionID == "" {
		r.metrics.resolve("invalid")
		return nil, core.ErrNoSession
	}

	session, err := r.storage.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			r.metrics.resolve("missing")
			return nil, core.ErrNoSession
		}
		r.metrics.resolve("error")
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if !session.Expired(r.now()) {
		r.metrics.resolve("valid")
		return principalOf(session), nil
	}

	tokens, err := r.refresher.Refresh(ctx, session.RefreshToken)
	if err != nil {
		r.metrics.refresh("failed")
		r.logger.Warn().Err(err).Str("session_id", session.ID).Msg("token refresh failed, dropping session")
		if delErr := r.storage.DeleteSessionByID(ctx, session.ID); delErr != nil && !errors.Is(delErr, core.ErrSessionNotFound) {
			r.logger.Error().Err(delErr).Str("session_id", session.ID).Msg("failed to delete session")
		}
		r.metrics.resolve("refresh_failed")
		return nil, core.ErrNoSession
	}
	r.metrics.refresh("ok")

	session.AccessToken = tokens.AccessToken
	session.ExpiresAt = tokens.ExpiresAt
	if tokens.RefreshToken != "" {
		session.RefreshToken = tokens.RefreshToken
	}
	session.UpdatedAt = r.now()

	if err := r.storage.UpdateSessionTokens(ctx, session.ID, *tokens); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			r.metrics.resolve("missing")
			return nil, core.ErrNoSession
		}
		r.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to persist refreshed tokens")
	}

	r.metrics.resolve("refreshed")
	return principalOf(session), nil
}

// Destroy deletes the session named by envelope. Unverifiable or unknown
// cookies are not an error.
func (r *SessionResolver) Destroy(ctx context.Context, envelope string) error {
	sessionID, ok := r.signer.ParseEnvelope(envelope)
	if !ok || sessionID == "" {
		return nil
	}

	err := r.storage.DeleteSessionByID(ctx, sessionID)
	if err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DestroyAllUserSessions signs a user out everywhere.
func (r *SessionResolver) DestroyAllUserSessions(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, core.ErrUserNotFound
	}
	return r.storage.DeleteUserSessions(ctx, userID)
}

// Prune deletes sessions whose access token expired more than olderThan ago.
func (r *SessionResolver) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := r.now().Add(-olderThan)
	n, err := r.storage.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	r.logger.Info().Int("deleted", n).Time("cutoff", cutoff).Msg("pruned stale sessions")
	return n, nil
}

func principalOf(s *core.Session) *core.Principal {
	return &core.Principal{
		SessionID:   s.ID,
		UserID:      s.UserID,
		AccessToken: s.AccessToken,
	}
}
