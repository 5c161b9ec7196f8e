// Package spotify talks to a Spotify-compatible accounts service and Web API.
package spotify

import (
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAuthURL  = "https://accounts.spotify.com/authorize"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultAPIURL   = "https://api.spotify.com/v1"

	DefaultTimeout = 15 * time.Second
)

// Scopes requested at login.
var Scopes = []string{
	"playlist-read-private",
	"playlist-modify-private",
	"playlist-modify-public",
	"user-read-recently-played",
	"user-read-private",
}

type Config struct {
	ClientID     string
	ClientSecret string
	// RedirectURI must be registered with the provider. A trailing slash is dropped.
	RedirectURI string

	AuthURL  string
	TokenURL string
	APIURL   string

	// Timeout bounds each upstream round-trip
	Timeout    time.Duration
	HTTPClient *http.Client
}

// WithDefaults fills empty endpoints and the timeout.
func (c Config) WithDefaults() Config {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.RedirectURI = strings.TrimSuffix(c.RedirectURI, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}
