package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lborres/playlistify/core"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) (*Catalog, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewCatalog(Config{APIURL: server.URL + "/v1/"})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c, server
}

func TestNewCatalog_RejectsRelativeURL(t *testing.T) {
	if _, err := NewCatalog(Config{APIURL: "/v1"}); err == nil {
		t.Error("NewCatalog() with relative api url should fail")
	}
}

// Requirement: track lookup asks for one result and strips quotes from the query.
func TestCatalog_SearchTrack(t *testing.T) {
	// Arrange
	var gotQuery, gotType, gotLimit string
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotType = r.URL.Query().Get("type")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = io.WriteString(w, `{"tracks":{"items":[{"uri":"spotify:track:1","name":"Song","artists":[{"id":"a1","name":"One"},{"id":"a2","name":"Two"}],"album":{"name":"LP"}}]}}`)
	})

	// Act
	track, err := c.SearchTrack(context.Background(), "token", `The "Band"`, `"Song"`)

	// Assert
	if err != nil {
		t.Fatalf("SearchTrack() error = %v", err)
	}
	if gotQuery != "artist:The Band track:Song" || gotType != "track" || gotLimit != "1" {
		t.Errorf("query = q=%q type=%q limit=%q", gotQuery, gotType, gotLimit)
	}
	want := &core.Track{URI: "spotify:track:1", Name: "Song", Artists: "One, Two", ArtistIDs: []string{"a1", "a2"}, Album: "LP"}
	if diff := cmp.Diff(want, track); diff != "" {
		t.Errorf("SearchTrack() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_SearchTrackNoMatch(t *testing.T) {
	// Arrange
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"tracks":{"items":[]}}`)
	})

	// Act
	track, err := c.SearchTrack(context.Background(), "token", "Nobody", "Nothing")

	// Assert
	if err != nil || track != nil {
		t.Errorf("SearchTrack() = %v, %v; want nil, nil", track, err)
	}
}

// Requirement: non-2xx answers surface the upstream status and body.
func TestCatalog_UpstreamError(t *testing.T) {
	// Arrange
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "slow down")
	})

	// Act
	_, err := c.Search(context.Background(), "token", "radiohead", "artist")

	// Assert
	var upstream *core.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Search() error = %v, want *core.UpstreamError", err)
	}
	if upstream.Status != http.StatusTooManyRequests || upstream.Body != "slow down" {
		t.Errorf("upstream = %+v", upstream)
	}
}

func TestCatalog_Search(t *testing.T) {
	// Arrange
	var gotLimit, gotAuth string
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"artists":{"items":[]}}`)
	})

	// Act
	raw, err := c.Search(context.Background(), "token", "radiohead", "artist,track")

	// Assert
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if string(raw) != `{"artists":{"items":[]}}` {
		t.Errorf("Search() = %s", raw)
	}
	if gotLimit != "20" || gotAuth != "Bearer token" {
		t.Errorf("limit = %q, auth = %q", gotLimit, gotAuth)
	}
}

// Requirement: playlist paging follows next links only on the API origin.
func TestCatalog_ListPlaylists(t *testing.T) {
	t.Run("follows pages", func(t *testing.T) {
		// Arrange
		var server *httptest.Server
		c, server := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("offset") {
			case "":
				_, _ = fmt.Fprintf(w, `{"items":[{"id":"p1"}],"next":"%s/v1/me/playlists?offset=50&limit=50"}`, server.URL)
			default:
				_, _ = io.WriteString(w, `{"items":[{"id":"p2"}],"next":null}`)
			}
		})

		// Act
		items, err := c.ListPlaylists(context.Background(), "token")

		// Assert
		if err != nil {
			t.Fatalf("ListPlaylists() error = %v", err)
		}
		if len(items) != 2 {
			t.Errorf("len(items) = %d, want 2", len(items))
		}
	})

	t.Run("stops at foreign origin", func(t *testing.T) {
		// Arrange
		calls := 0
		c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = io.WriteString(w, `{"items":[{"id":"p1"}],"next":"https://evil.example.test/steal"}`)
		})

		// Act
		items, err := c.ListPlaylists(context.Background(), "token")

		// Assert
		if err != nil {
			t.Fatalf("ListPlaylists() error = %v", err)
		}
		if calls != 1 || len(items) != 1 {
			t.Errorf("calls = %d, items = %d; want 1, 1", calls, len(items))
		}
	})

	t.Run("caps page count", func(t *testing.T) {
		// Arrange
		calls := 0
		var server *httptest.Server
		c, server := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = fmt.Fprintf(w, `{"items":[{"id":"p"}],"next":"%s/v1/me/playlists?offset=%d"}`, server.URL, calls*50)
		})

		// Act
		items, err := c.ListPlaylists(context.Background(), "token")

		// Assert
		if err != nil {
			t.Fatalf("ListPlaylists() error = %v", err)
		}
		if calls != maxPlaylistPages || len(items) != maxPlaylistPages {
			t.Errorf("calls = %d, items = %d; want %d", calls, len(items), maxPlaylistPages)
		}
	})
}

func TestCatalog_PlaylistTracks(t *testing.T) {
	// Arrange
	var gotPath string
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"items":[{"track":{"name":"A","artists":[{"name":"X"},{"name":"Y"}]}},{"track":null}]}`)
	})

	// Act
	tracks, err := c.PlaylistTracks(context.Background(), "token", "pl/1")

	// Assert
	if err != nil {
		t.Fatalf("PlaylistTracks() error = %v", err)
	}
	if gotPath != "/v1/playlists/pl%2F1/tracks" {
		t.Errorf("path = %q", gotPath)
	}
	want := []core.TrackSummary{{Name: "A", Artists: "X, Y"}}
	if diff := cmp.Diff(want, tracks); diff != "" {
		t.Errorf("PlaylistTracks() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_CreatePlaylistAndAddTracks(t *testing.T) {
	// Arrange
	var createBody, addBody map[string]any
	var createPath string
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/tracks") {
			_ = json.NewDecoder(r.Body).Decode(&addBody)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"snapshot_id":"s"}`)
			return
		}
		createPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&createBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"pl1","external_urls":{"spotify":"https://open.example.test/pl1"}}`)
	})

	// Act
	playlist, err := c.CreatePlaylist(context.Background(), "token", "ada", "Mix")
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	err = c.AddTracks(context.Background(), "token", playlist.ID, []string{"spotify:track:1"})

	// Assert
	if err != nil {
		t.Fatalf("AddTracks() error = %v", err)
	}
	if createPath != "/v1/users/ada/playlists" {
		t.Errorf("create path = %q", createPath)
	}
	if diff := cmp.Diff(map[string]any{"name": "Mix", "public": false}, createBody); diff != "" {
		t.Errorf("create body mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"uris": []any{"spotify:track:1"}}, addBody); diff != "" {
		t.Errorf("add body mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&core.Playlist{ID: "pl1", URL: "https://open.example.test/pl1"}, playlist); diff != "" {
		t.Errorf("playlist mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_UpdateAndUnfollow(t *testing.T) {
	// Arrange
	type call struct {
		Method string
		Path   string
		Body   string
	}
	var calls []call
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{Method: r.Method, Path: r.URL.Path, Body: strings.TrimSpace(string(body))})
	})
	public := false

	// Act
	if err := c.UpdatePlaylist(context.Background(), "token", "pl1", core.PlaylistUpdate{Public: &public}); err != nil {
		t.Fatalf("UpdatePlaylist() error = %v", err)
	}
	if err := c.UnfollowPlaylist(context.Background(), "token", "pl1"); err != nil {
		t.Fatalf("UnfollowPlaylist() error = %v", err)
	}

	// Assert
	want := []call{
		{Method: http.MethodPut, Path: "/v1/playlists/pl1", Body: `{"public":false}`},
		{Method: http.MethodDelete, Path: "/v1/playlists/pl1/followers"},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_RecentlyPlayedAndGenreSeeds(t *testing.T) {
	// Arrange
	var paths []string
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		_, _ = io.WriteString(w, `{"items":[]}`)
	})

	// Act
	if _, err := c.RecentlyPlayed(context.Background(), "token"); err != nil {
		t.Fatalf("RecentlyPlayed() error = %v", err)
	}
	if _, err := c.GenreSeeds(context.Background(), "token"); err != nil {
		t.Fatalf("GenreSeeds() error = %v", err)
	}

	// Assert
	want := []string{"/v1/me/player/recently-played?limit=50", "/v1/recommendations/available-genre-seeds"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}
