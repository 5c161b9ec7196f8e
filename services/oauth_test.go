package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/lborres/playlistify/core"
	"github.com/lborres/playlistify/pkg/crypto"
)

func strPtr(s string) *string { return &s }

func newTestIdentity() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		Tokens:  &core.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresAt: testNow.Add(time.Hour)},
		Profile: &core.Profile{ExternalID: "spotify-user", DisplayName: strPtr("Ada"), ImageURL: strPtr("https://img.example.test/a.png")},
	}
}

// Helper function to create an OAuthFlow for tests
func newTestFlow(t *testing.T, storage core.StorageProvider, idp core.IdentityProvider, allowedID string) *OAuthFlow {
	t.Helper()
	resolver := newTestResolver(t, storage, idp, nil)
	flow := NewOAuthFlow(idp, storage, resolver, testSigner(t, crypto.PurposeStateCookie), core.DefaultSessionConfig(), allowedID, nil, zerolog.Nop())
	flow.now = func() time.Time { return testNow }
	return flow
}

// validCallback returns callback params whose state cookie matches.
func validCallback(flow *OAuthFlow) CallbackParams {
	return CallbackParams{
		State:       "nonce1",
		Code:        "code1",
		StateCookie: flow.states.BuildTimedEnvelope("nonce1", testNow.Add(10*time.Minute)),
	}
}

func wantCallbackCode(t *testing.T, err error, code string) {
	t.Helper()
	var cbErr *CallbackError
	if !errors.As(err, &cbErr) {
		t.Fatalf("error = %v, want *CallbackError with code %q", err, code)
	}
	if cbErr.Code != code {
		t.Errorf("callback code = %q, want %q", cbErr.Code, code)
	}
}

// Requirement: Begin sends the raw nonce to the provider and the signed nonce to the browser.
func TestOAuthFlow_Begin(t *testing.T) {
	// Arrange
	flow := newTestFlow(t, NewFakeStorageProvider(), newTestIdentity(), "")

	// Act
	redirect, err := flow.Begin()

	// Assert
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	u, err := url.Parse(redirect.URL)
	if err != nil {
		t.Fatalf("invalid redirect URL %q: %v", redirect.URL, err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("redirect URL carries no state")
	}
	nonce, ok := flow.states.ParseTimedEnvelope(redirect.StateCookie, testNow)
	if !ok {
		t.Fatalf("state cookie %q does not verify", redirect.StateCookie)
	}
	if nonce != state {
		t.Errorf("cookie nonce = %q, URL state = %q", nonce, state)
	}
	if redirect.MaxAge != 10*time.Minute {
		t.Errorf("MaxAge = %v, want 10m", redirect.MaxAge)
	}
	if _, ok := flow.states.ParseTimedEnvelope(redirect.StateCookie, testNow.Add(10*time.Minute)); ok {
		t.Error("state cookie still valid after 10 minutes")
	}
}

func TestOAuthFlow_Begin_FreshNoncePerLogin(t *testing.T) {
	// Arrange
	flow := newTestFlow(t, NewFakeStorageProvider(), newTestIdentity(), "")

	// Act
	first, _ := flow.Begin()
	second, _ := flow.Begin()

	// Assert
	if first.StateCookie == second.StateCookie {
		t.Error("two logins produced the same state cookie")
	}
}

// Requirement: a successful callback creates the user and a session with both tokens.
func TestOAuthFlow_Complete_Success(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	idp := newTestIdentity()
	flow := newTestFlow(t, storage, idp, "")

	// Act
	result, err := flow.Complete(context.Background(), validCallback(flow))

	// Assert
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if idp.LastCode != "code1" {
		t.Errorf("exchanged code %q, want code1", idp.LastCode)
	}
	if result.User.ExternalID != "spotify-user" || result.User.ID == "" {
		t.Errorf("user = %+v", result.User)
	}
	if result.User.DisplayName == nil || *result.User.DisplayName != "Ada" {
		t.Errorf("DisplayName = %v, want Ada", result.User.DisplayName)
	}

	principal, err := flow.sessions.Resolve(context.Background(), result.SessionCookie)
	if err != nil {
		t.Fatalf("session cookie does not resolve: %v", err)
	}
	if principal.UserID != result.User.ID || principal.AccessToken != "at" {
		t.Errorf("principal = %+v", principal)
	}
	sessions := storage.Sessions()
	if len(sessions) != 1 || sessions[0].RefreshToken != "rt" {
		t.Errorf("sessions = %+v, want one with refresh token rt", sessions)
	}
}

// Requirement: any state problem yields state_mismatch and writes nothing.
func TestOAuthFlow_Complete_StateMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(flow *OAuthFlow, p *CallbackParams)
	}{
		{name: "missing state cookie", mutate: func(_ *OAuthFlow, p *CallbackParams) { p.StateCookie = "" }},
		{name: "missing state param", mutate: func(_ *OAuthFlow, p *CallbackParams) { p.State = "" }},
		{name: "different state param", mutate: func(_ *OAuthFlow, p *CallbackParams) { p.State = "nonce2" }},
		{name: "tampered cookie", mutate: func(_ *OAuthFlow, p *CallbackParams) { p.StateCookie = "x" + p.StateCookie }},
		{name: "expired cookie", mutate: func(f *OAuthFlow, p *CallbackParams) {
			p.StateCookie = f.states.BuildTimedEnvelope("nonce1", testNow.Add(-time.Second))
		}},
		{name: "session cookie replayed as state", mutate: func(f *OAuthFlow, p *CallbackParams) {
			p.StateCookie = f.sessions.signer.BuildEnvelope("nonce1~9999999999")
		}},
		{name: "unsigned state cookie", mutate: func(_ *OAuthFlow, p *CallbackParams) { p.StateCookie = "nonce1" }},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorageProvider()
			idp := newTestIdentity()
			flow := newTestFlow(t, storage, idp, "")
			params := validCallback(flow)
			test.mutate(flow, &params)

			// Act
			result, err := flow.Complete(context.Background(), params)

			// Assert
			wantCallbackCode(t, err, CodeStateMismatch)
			if !errors.Is(err, core.ErrStateMismatch) {
				t.Errorf("error = %v, want ErrStateMismatch", err)
			}
			if result != nil {
				t.Error("result returned on state mismatch")
			}
			if idp.ExchangeCalls != 0 {
				t.Errorf("ExchangeCalls = %d, want 0", idp.ExchangeCalls)
			}
			if len(storage.Users()) != 0 || len(storage.Sessions()) != 0 {
				t.Error("state mismatch wrote a user or session")
			}
		})
	}
}

// Requirement: each failure step maps to its browser-facing code and persists nothing.
func TestOAuthFlow_Complete_Failures(t *testing.T) {
	tests := []struct {
		name      string
		arrange   func(storage *FakeStorageProvider, idp *FakeIdentityProvider, p *CallbackParams)
		allowedID string
		wantCode  string
		wantErr   error
	}{
		{
			name: "provider returned an error",
			arrange: func(_ *FakeStorageProvider, _ *FakeIdentityProvider, p *CallbackParams) {
				p.Error = "access_denied_by_user"
			},
			wantCode: "access_denied_by_user",
			wantErr:  core.ErrProviderRejection,
		},
		{
			name: "missing code",
			arrange: func(_ *FakeStorageProvider, _ *FakeIdentityProvider, p *CallbackParams) {
				p.Code = ""
			},
			wantCode: CodeNoCode,
			wantErr:  core.ErrMissingCode,
		},
		{
			name: "exchange fails",
			arrange: func(_ *FakeStorageProvider, idp *FakeIdentityProvider, _ *CallbackParams) {
				idp.ExchangeErr = errors.New("invalid_grant")
			},
			wantCode: CodeTokenExchangeFailed,
			wantErr:  core.ErrTokenExchange,
		},
		{
			name: "exchange returns no refresh token",
			arrange: func(_ *FakeStorageProvider, idp *FakeIdentityProvider, _ *CallbackParams) {
				idp.Tokens = &core.TokenSet{AccessToken: "at", ExpiresAt: testNow.Add(time.Hour)}
			},
			wantCode: CodeTokenExchangeFailed,
			wantErr:  core.ErrIncompleteTokens,
		},
		{
			name: "profile fetch fails",
			arrange: func(_ *FakeStorageProvider, idp *FakeIdentityProvider, _ *CallbackParams) {
				idp.ProfileErr = errors.New("401")
			},
			wantCode: CodeProfileFailed,
			wantErr:  core.ErrProfileFetch,
		},
		{
			name:      "user outside the allow-list",
			arrange:   func(*FakeStorageProvider, *FakeIdentityProvider, *CallbackParams) {},
			allowedID: "someone-else",
			wantCode:  CodeAccessDenied,
			wantErr:   core.ErrAccessDenied,
		},
		{
			name: "user lookup fails",
			arrange: func(s *FakeStorageProvider, _ *FakeIdentityProvider, _ *CallbackParams) {
				s.GetUserErr = errors.New("no such table: users")
			},
			wantCode: CodeStorage,
			wantErr:  core.ErrStorageSetup,
		},
		{
			name: "user insert fails",
			arrange: func(s *FakeStorageProvider, _ *FakeIdentityProvider, _ *CallbackParams) {
				s.CreateUserErr = errors.New("disk full")
			},
			wantCode: CodeStorage,
			wantErr:  core.ErrStorageSetup,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorageProvider()
			idp := newTestIdentity()
			flow := newTestFlow(t, storage, idp, test.allowedID)
			params := validCallback(flow)
			test.arrange(storage, idp, &params)

			// Act
			_, err := flow.Complete(context.Background(), params)

			// Assert
			wantCallbackCode(t, err, test.wantCode)
			if !errors.Is(err, test.wantErr) {
				t.Errorf("error = %v, want %v", err, test.wantErr)
			}
			if idp.ExchangeCalls > 1 {
				t.Errorf("ExchangeCalls = %d, exchange must not be retried", idp.ExchangeCalls)
			}
			if len(storage.Sessions()) != 0 {
				t.Error("failed callback wrote a session")
			}
		})
	}
}

func TestOAuthFlow_Complete_SessionWriteFails(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	storage.CreateSessionErr = errors.New("disk full")
	flow := newTestFlow(t, storage, newTestIdentity(), "")

	// Act
	_, err := flow.Complete(context.Background(), validCallback(flow))

	// Assert
	wantCallbackCode(t, err, CodeStorage)
}

// Requirement: the allow-listed user gets in.
func TestOAuthFlow_Complete_AllowListed(t *testing.T) {
	// Arrange
	flow := newTestFlow(t, NewFakeStorageProvider(), newTestIdentity(), "spotify-user")

	// Act
	_, err := flow.Complete(context.Background(), validCallback(flow))

	// Assert
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
}

// Requirement: logging in twice with the same identity reuses one user row.
func TestOAuthFlow_Complete_UserDedupe(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	flow := newTestFlow(t, storage, newTestIdentity(), "")

	// Act
	first, err := flow.Complete(context.Background(), validCallback(flow))
	if err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}
	second, err := flow.Complete(context.Background(), validCallback(flow))
	if err != nil {
		t.Fatalf("second Complete() error = %v", err)
	}

	// Assert
	if first.User.ID != second.User.ID {
		t.Errorf("user ids differ: %q vs %q", first.User.ID, second.User.ID)
	}
	if n := len(storage.Users()); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
	if n := len(storage.Sessions()); n != 2 {
		t.Errorf("sessions = %d, want 2", n)
	}
	if first.Session.ID == second.Session.ID {
		t.Error("session id reused across logins")
	}
}

// racingUsers misses the first lookup, as if a concurrent login inserted
// the user between our read and our write.
type racingUsers struct {
	*FakeStorageProvider
	missed bool
}

func (r *racingUsers) GetUserByExternalID(ctx context.Context, externalID string) (*core.User, error) {
	if !r.missed {
		r.missed = true
		return nil, core.ErrUserNotFound
	}
	return r.FakeStorageProvider.GetUserByExternalID(ctx, externalID)
}

func TestOAuthFlow_Complete_ConcurrentUserInsert(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	winner := &core.User{ID: "winner", ExternalID: "spotify-user", CreatedAt: testNow}
	if err := storage.CreateUser(context.Background(), winner); err != nil {
		t.Fatalf("seed CreateUser() error = %v", err)
	}
	flow := newTestFlow(t, &racingUsers{FakeStorageProvider: storage}, newTestIdentity(), "")

	// Act
	result, err := flow.Complete(context.Background(), validCallback(flow))

	// Assert
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.User.ID != "winner" {
		t.Errorf("user id = %q, want the concurrently inserted %q", result.User.ID, "winner")
	}
}

// Requirement: provider error strings reach the redirect but share one metric label.
func TestOAuthFlow_Complete_ProviderErrorMetricLabel(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	idp := newTestIdentity()
	metrics := NewMetrics(prometheus.NewRegistry())
	resolver := newTestResolver(t, storage, idp, nil)
	flow := NewOAuthFlow(idp, storage, resolver, testSigner(t, crypto.PurposeStateCookie), core.DefaultSessionConfig(), "", metrics, zerolog.Nop())
	flow.now = func() time.Time { return testNow }

	// Act
	var lastErr error
	for i := 0; i < 50; i++ {
		_, lastErr = flow.Complete(context.Background(), CallbackParams{Error: fmt.Sprintf("made_up_%d", i)})
	}

	// Assert
	wantCallbackCode(t, lastErr, "made_up_49")
	if got := testutil.CollectAndCount(metrics.logins); got != 1 {
		t.Errorf("callback series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.logins.WithLabelValues(CodeProviderError)); got != 50 {
		t.Errorf("provider_error callbacks = %v, want 50", got)
	}
}

func TestOAuthFlow_Logout(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	flow := newTestFlow(t, storage, newTestIdentity(), "")
	result, err := flow.Complete(context.Background(), validCallback(flow))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	// Act
	err = flow.Logout(context.Background(), result.SessionCookie)

	// Assert
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := flow.sessions.Resolve(context.Background(), result.SessionCookie); !errors.Is(err, core.ErrNoSession) {
		t.Errorf("Resolve after logout error = %v, want ErrNoSession", err)
	}
}
