package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lborres/playlistify/core"
	"github.com/lborres/playlistify/pkg/crypto"
)

// Callback result codes, shown to the browser as /?error=<code>.
const (
	CodeStateMismatch       = "state_mismatch"
	CodeNoCode              = "no_code"
	CodeTokenExchangeFailed = "token_exchange_failed"
	CodeProfileFailed       = "me_failed"
	CodeAccessDenied        = "access_denied"
	CodeStorage             = "db_setup"

	// CodeProviderError is the metric label for any provider-reported error.
	CodeProviderError = "provider_error"
)

// CallbackError is a failed callback. Code is safe to show, Err is for logs.
type CallbackError struct {
	Code string
	Err  error
}

func (e *CallbackError) Error() string {
	if e.Err == nil {
		return "oauth callback: " + e.Code
	}
	return fmt.Sprintf("oauth callback: %s: %v", e.Code, e.Err)
}

// metricLabel bounds the result label: provider error strings come straight
// from the query and are collapsed into one value.
func (e *CallbackError) metricLabel() string {
	if errors.Is(e.Err, core.ErrProviderRejection) {
		return CodeProviderError
	}
	return e.Code
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// LoginRedirect is where to send the browser and the state cookie to set first.
type LoginRedirect struct {
	URL         string
	StateCookie string
	MaxAge      time.Duration
}

// CallbackParams are the query parameters and state cookie of the redirect back.
type CallbackParams struct {
	Error       string
	State       string
	Code        string
	StateCookie string
}

type CallbackResult struct {
	User          *core.User
	Session       *core.Session
	SessionCookie string
}

// OAuthFlow drives the authorization-code login.
type OAuthFlow struct {
	identity    core.IdentityProvider
	users       core.UserStorage
	sessions    *SessionResolver
	states      *crypto.Signer
	stateMaxAge time.Duration
	allowedID   string
	metrics     *Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewOAuthFlow(
	identity core.IdentityProvider,
	users core.UserStorage,
	sessions *SessionResolver,
	states *crypto.Signer,
	config core.SessionConfig,
	allowedID string,
	metrics *Metrics,
	logger zerolog.Logger,
) *OAuthFlow {
	return &OAuthFlow{
		identity:    identity,
		users:       users,
		sessions:    sessions,
		states:      states,
		stateMaxAge: config.WithDefaults().StateMaxAge,
		allowedID:   allowedID,
		metrics:     metrics,
		logger:      logger.With().Str("component", "oauth").Logger(),
		now:         time.Now,
	}
}

// Begin starts a login: a fresh nonce goes to the provider as state and,
// signed with its expiry, into the state cookie.
func (f *OAuthFlow) Begin() (*LoginRedirect, error) {
	nonce, err := crypto.NewStateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	return &LoginRedirect{
		URL:         f.identity.AuthCodeURL(nonce),
		StateCookie: f.states.BuildTimedEnvelope(nonce, f.now().Add(f.stateMaxAge)),
		MaxAge:      f.stateMaxAge,
	}, nil
}

// Complete finishes a login. Nothing is persisted unless the state checks out,
// the code exchanges, the profile loads and the user is allowed in.
func (f *OAuthFlow) Complete(ctx context.Context, p CallbackParams) (*CallbackResult, error) {
	result, err := f.complete(ctx, p)
	if err != nil {
		var cbErr *CallbackError
		if errors.As(err, &cbErr) {
			f.metrics.login(cbErr.metricLabel())
		}
		return nil, err
	}
	f.metrics.login("ok")
	return result, nil
}

func (f *OAuthFlow) complete(ctx context.Context, p CallbackParams) (*CallbackResult, error) {
	if p.Error != "" {
		return nil, &CallbackError{Code: p.Error, Err: core.ErrProviderRejection}
	}

	nonce, ok := f.states.ParseTimedEnvelope(p.StateCookie, f.now())
	if !ok || p.State == "" || nonce != p.State {
		return nil, &CallbackError{Code: CodeStateMismatch, Err: core.ErrStateMismatch}
	}

	if p.Code == "" {
		return nil, &CallbackError{Code: CodeNoCode, Err: core.ErrMissingCode}
	}

	tokens, err := f.identity.Exchange(ctx, p.Code)
	if err != nil {
		return nil, &CallbackError{Code: CodeTokenExchangeFailed, Err: fmt.Errorf("%w: %v", core.ErrTokenExchange, err)}
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return nil, &CallbackError{Code: CodeTokenExchangeFailed, Err: core.ErrIncompleteTokens}
	}

	profile, err := f.identity.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, &CallbackError{Code: CodeProfileFailed, Err: fmt.Errorf("%w: %v", core.ErrProfileFetch, err)}
	}

	if f.allowedID != "" && profile.ExternalID != f.allowedID {
		f.logger.Warn().Str("external_id", profile.ExternalID).Msg("login from user outside the allow-list")
		return nil, &CallbackError{Code: CodeAccessDenied, Err: core.ErrAccessDenied}
	}

	user, err := f.findOrCreateUser(ctx, profile)
	if err != nil {
		return nil, &CallbackError{Code: CodeStorage, Err: fmt.Errorf("%w: %v", core.ErrStorageSetup, err)}
	}

	session, cookie, err := f.sessions.Create(ctx, user.ID, *tokens)
	if err != nil {
		return nil, &CallbackError{Code: CodeStorage, Err: fmt.Errorf("%w: %v", core.ErrStorageSetup, err)}
	}

	f.logger.Info().Str("user_id", user.ID).Msg("user signed in")

	return &CallbackResult{User: user, Session: session, SessionCookie: cookie}, nil
}

// findOrCreateUser returns the single user row for profile's external id.
func (f *OAuthFlow) findOrCreateUser(ctx context.Context, profile *core.Profile) (*core.User, error) {
	existing, err := f.users.GetUserByExternalID(ctx, profile.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user := &core.User{
		ID:          uuid.NewString(),
		ExternalID:  profile.ExternalID,
		DisplayName: profile.DisplayName,
		ImageURL:    profile.ImageURL,
		CreatedAt:   f.now(),
	}

	err = f.users.CreateUser(ctx, user)
	if errors.Is(err, core.ErrUserExists) {
		// Lost a race with a concurrent login for the same identity
		return f.users.GetUserByExternalID(ctx, profile.ExternalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Logout deletes the session behind envelope, if any.
func (f *OAuthFlow) Logout(ctx context.Context, envelope string) error {
	return f.sessions.Destroy(ctx, envelope)
}
