package config

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	// Arrange
	lookuper := envconfig.MapLookuper(map[string]string{
		"DATABASE_URL": "sqlite://playlistify.db",
	})

	// Act
	cfg, err := LoadFrom(context.Background(), lookuper)

	// Assert
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	want := Config{
		Addr:            ":8080",
		DatabaseURL:     "sqlite://playlistify.db",
		LogLevel:        "info",
		SessionMaxAge:   30 * 24 * time.Hour,
		UpstreamTimeout: 15 * time.Second,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadFrom() mismatch (-want +got):\n%s", diff)
	}
	if cfg.SpotifyConfigured() {
		t.Error("SpotifyConfigured() = true without credentials")
	}
}

func TestLoadFrom_RequiresDatabaseURL(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err == nil {
		t.Error("LoadFrom() without DATABASE_URL should fail")
	}
}

func TestConfig_SpotifyConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{name: "complete", cfg: Config{SpotifyClientID: "id", SpotifyClientSecret: "secret", SpotifyRedirectURI: "http://127.0.0.1/cb"}, want: true},
		{name: "no secret", cfg: Config{SpotifyClientID: "id", SpotifyRedirectURI: "http://127.0.0.1/cb"}},
		{name: "no redirect", cfg: Config{SpotifyClientID: "id", SpotifyClientSecret: "secret"}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := test.cfg.SpotifyConfigured(); got != test.want {
				t.Errorf("SpotifyConfigured() = %v, want %v", got, test.want)
			}
		})
	}
}
