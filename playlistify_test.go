package playlistify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lborres/playlistify/core"
	"github.com/lborres/playlistify/services"
)

const testSecret = "01234567890123456789012345678901"

// dummy HTTP Adapter
type dummyHTTP struct {
	registered *Playlistify
	err        error
}

func (d *dummyHTTP) RegisterRoutes(p *Playlistify) error {
	d.registered = p
	return d.err
}

func validConfig() Config {
	return Config{
		Storage:  services.NewFakeStorageProvider(),
		HTTP:     &dummyHTTP{},
		Catalog:  &services.FakeCatalog{},
		Identity: &services.FakeIdentityProvider{},
		Secret:   testSecret,
	}
}

func TestNewShouldReturnErrSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.Secret = "short-secret"

	_, err := New(cfg)
	if !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort sentinel (errors.Is), got %v", err)
	}
	// Message should include the minimum length
	if !strings.Contains(err.Error(), "32") {
		t.Fatalf("expected error message to include minimum length, got %v", err)
	}
}

func TestNewShouldRequireAdapters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "storage", mutate: func(c *Config) { c.Storage = nil }, want: ErrStorageRequired},
		{name: "http", mutate: func(c *Config) { c.HTTP = nil }, want: ErrHTTPRequired},
		{name: "catalog", mutate: func(c *Config) { c.Catalog = nil }, want: ErrCatalogRequired},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			cfg := validConfig()
			test.mutate(&cfg)

			// Act
			_, err := New(cfg)

			// Assert
			if !errors.Is(err, test.want) {
				t.Errorf("New() error = %v, want %v", err, test.want)
			}
		})
	}
}

// Requirement: missing login settings disable auth instead of failing startup.
func TestNewShouldDisableAuthWhenNotConfigured(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "no secret", mutate: func(c *Config) { c.Secret = "" }, want: ErrSecretRequired},
		{name: "no identity provider", mutate: func(c *Config) { c.Identity = nil }, want: ErrIdentityRequired},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			cfg := validConfig()
			test.mutate(&cfg)

			// Act
			p, err := New(cfg)

			// Assert
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !errors.Is(p.AuthConfigErr, test.want) {
				t.Errorf("AuthConfigErr = %v, want %v", p.AuthConfigErr, test.want)
			}
			if p.OAuth != nil || p.Sessions != nil {
				t.Error("auth services wired without configuration")
			}
			if p.Library == nil || p.Blocklist == nil {
				t.Error("library services should not depend on auth configuration")
			}
		})
	}
}

func TestNewShouldWireServicesAndRegisterRoutes(t *testing.T) {
	// Arrange
	cfg := validConfig()
	http := &dummyHTTP{}
	cfg.HTTP = http
	cfg.SessionConfig = &SessionConfig{MaxAge: 24 * time.Hour}
	cfg.Registerer = prometheus.NewRegistry()

	// Act
	p, err := New(cfg)

	// Assert
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if http.registered != p {
		t.Error("RegisterRoutes was not called with the instance")
	}
	if p.AuthConfigErr != nil || p.OAuth == nil || p.Sessions == nil {
		t.Errorf("auth not wired: err = %v", p.AuthConfigErr)
	}
	if got := p.Sessions.MaxAge(); got != 24*time.Hour {
		t.Errorf("MaxAge() = %v, want 24h", got)
	}
	if got := len(p.Endpoints.Endpoints()); got != len(services.BaseEndpoints()) {
		t.Errorf("registered endpoints = %d, want %d", got, len(services.BaseEndpoints()))
	}
}

func TestNewShouldLeaveGeneratorDisabledWithoutSuggester(t *testing.T) {
	p, err := New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Generator.Generate(t.Context(), &core.Principal{UserID: "u1"}, core.GenerateInput{SeedGenres: []string{"rock"}})
	if !errors.Is(err, core.ErrSuggesterDisabled) {
		t.Errorf("Generate() error = %v, want ErrSuggesterDisabled", err)
	}
}

func TestNewShouldReturnRegisterRoutesError(t *testing.T) {
	cfg := validConfig()
	wantErr := errors.New("route conflict")
	cfg.HTTP = &dummyHTTP{err: wantErr}

	if _, err := New(cfg); !errors.Is(err, wantErr) {
		t.Errorf("New() error = %v, want %v", err, wantErr)
	}
}
