package services

import (
	"fmt"
	"sort"

	"github.com/lborres/playlistify/core"
)

// Operation ids shared by the registry and the HTTP adapters.
const (
	OpLogin            = "login"
	OpCallback         = "oauthCallback"
	OpLogout           = "logout"
	OpMe               = "getMe"
	OpListBlocklist    = "listBlocklist"
	OpAddBlocklist     = "addBlockedArtist"
	OpRemoveBlocklist  = "removeBlockedArtist"
	OpSearch           = "search"
	OpListPlaylists    = "listPlaylists"
	OpPlaylistTracks   = "getPlaylistTracks"
	OpEditPlaylist     = "editPlaylist"
	OpUnfollowPlaylist = "unfollowPlaylist"
	OpCreatePlaylist   = "createPlaylist"
	OpRecent           = "recentlyPlayed"
	OpGenreSeeds       = "genreSeeds"
	OpGeneratePlaylist = "generatePlaylist"
)

// AuthEndpoints are the public login/logout routes.
func AuthEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/auth/login",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpLogin,
				Description: "Start the authorization-code login",
			},
		},
		{
			Path:   "/auth/callback",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpCallback,
				Description: "Finish the login and set the session cookie",
			},
		},
		{
			Path:   "/auth/logout",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpLogout,
				Description: "Delete the current session and clear its cookie",
			},
		},
	}
}

// APIEndpoints are the routes behind the request guard.
func APIEndpoints() []core.Endpoint {
	protected := func(method, path, opID, desc string) core.Endpoint {
		return core.Endpoint{
			Path:   path,
			Method: method,
			Metadata: core.EndpointMetadata{
				OperationID: opID,
				Description: desc,
				Protected:   true,
			},
		}
	}

	return []core.Endpoint{
		protected("GET", "/api/me", OpMe, "Get the signed-in user"),
		protected("GET", "/api/blocklist", OpListBlocklist, "List blocked artists"),
		protected("POST", "/api/blocklist", OpAddBlocklist, "Block an artist"),
		protected("DELETE", "/api/blocklist/:id", OpRemoveBlocklist, "Unblock an artist"),
		protected("GET", "/api/search", OpSearch, "Search the catalog"),
		protected("GET", "/api/playlists", OpListPlaylists, "List the user's playlists"),
		protected("GET", "/api/playlist/:id/tracks", OpPlaylistTracks, "List a playlist's tracks"),
		protected("PATCH", "/api/playlist/:id", OpEditPlaylist, "Edit playlist details"),
		protected("DELETE", "/api/playlist/:id", OpUnfollowPlaylist, "Remove a playlist from the library"),
		protected("POST", "/api/playlists/create", OpCreatePlaylist, "Create a playlist with tracks"),
		protected("GET", "/api/recent", OpRecent, "Recently played tracks"),
		protected("GET", "/api/genre-seeds", OpGenreSeeds, "Available genre seeds"),
		protected("POST", "/api/generate-playlist", OpGeneratePlaylist, "Suggest tracks from seeds"),
	}
}

// BaseEndpoints returns every route of the application.
func BaseEndpoints() []core.Endpoint {
	return append(AuthEndpoints(), APIEndpoints()...)
}

// EndpointRegistry holds framework-agnostic routes keyed by "METHOD:PATH".
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a registry with all base endpoints registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	base := BaseEndpoints()
	for i := range base {
		// Base endpoints are unique by construction
		_ = reg.register(&base[i])
	}

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	return nil
}

// Register adds extra endpoints. Either all are added or, on any conflict
// with the registry or within the batch, none.
func (r *EndpointRegistry) Register(endpoints []core.Endpoint) error {
	seen := make(map[string]bool)
	for i := range endpoints {
		ep := &endpoints[i]
		key := endpointKey(ep)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if seen[key] {
			return fmt.Errorf("duplicate endpoint: %s %s", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		r.endpoints[endpointKey(&endpoints[i])] = &endpoints[i]
	}

	return nil
}

// Endpoints returns all registered endpoints ordered by path, then method.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}
