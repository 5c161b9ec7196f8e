package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/lborres/playlistify/core"
)

const (
	searchLimit      = 20
	pageLimit        = 50
	recentLimit      = 50
	maxPlaylistPages = 20
)

// Catalog calls the Web API on behalf of the user owning accessToken.
type Catalog struct {
	base       *url.URL
	httpClient *http.Client
	timeout    time.Duration
}

var _ core.Catalog = (*Catalog)(nil)

func NewCatalog(cfg Config) (*Catalog, error) {
	cfg = cfg.WithDefaults()

	base, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: scheme and host are required", cfg.APIURL)
	}

	return &Catalog{
		base:       base,
		httpClient: cfg.HTTPClient,
		timeout:    cfg.Timeout,
	}, nil
}

type apiArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiTrack struct {
	URI     string      `json:"uri"`
	Name    string      `json:"name"`
	Artists []apiArtist `json:"artists"`
	Album   *struct {
		Name string `json:"name"`
	} `json:"album"`
}

func artistNames(artists []apiArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// externalID accepts the profile id as a JSON string or number.
type externalID string

func (id *externalID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = externalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("profile id: %w", err)
	}
	*id = externalID(n.String())
	return nil
}

// Me returns the profile of the token's owner.
func (c *Catalog) Me(ctx context.Context, accessToken string) (*core.Profile, error) {
	var me struct {
		ID          externalID `json:"id"`
		DisplayName *string    `json:"display_name"`
		Images      []struct {
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := c.getJSON(ctx, accessToken, c.endpoint("/me", nil), &me); err != nil {
		return nil, err
	}
	if me.ID == "" {
		return nil, fmt.Errorf("profile has no id")
	}

	profile := &core.Profile{
		ExternalID:  string(me.ID),
		DisplayName: me.DisplayName,
	}
	if len(me.Images) > 0 && me.Images[0].URL != "" {
		imageURL := me.Images[0].URL
		profile.ImageURL = &imageURL
	}
	return profile, nil
}

func (c *Catalog) SearchTrack(ctx context.Context, accessToken, artist, track string) (*core.Track, error) {
	q := "artist:" + strings.ReplaceAll(artist, `"`, "") + " track:" + strings.ReplaceAll(track, `"`, "")
	query := url.Values{
		"q":     {q},
		"type":  {"track"},
		"limit": {"1"},
	}

	var result struct {
		Tracks struct {
			Items []apiTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := c.getJSON(ctx, accessToken, c.endpoint("/search", query), &result); err != nil {
		return nil, err
	}
	if len(result.Tracks.Items) == 0 {
		return nil, nil
	}

	item := result.Tracks.Items[0]
	found := &core.Track{
		URI:       item.URI,
		Name:      item.Name,
		Artists:   artistNames(item.Artists),
		ArtistIDs: make([]string, 0, len(item.Artists)),
	}
	for _, a := range item.Artists {
		found.ArtistIDs = append(found.ArtistIDs, a.ID)
	}
	if item.Album != nil {
		found.Album = item.Album.Name
	}
	return found, nil
}

func (c *Catalog) Search(ctx context.Context, accessToken, query, types string) (json.RawMessage, error) {
	params := url.Values{
		"q":     {query},
		"type":  {types},
		"limit": {strconv.Itoa(searchLimit)},
	}
	return c.getRaw(ctx, accessToken, c.endpoint("/search", params))
}

// ListPlaylists follows the paging links, at most maxPlaylistPages pages and
// never off the API origin.
func (c *Catalog) ListPlaylists(ctx context.Context, accessToken string) ([]json.RawMessage, error) {
	items := []json.RawMessage{}
	next := c.endpoint("/me/playlists", url.Values{"limit": {strconv.Itoa(pageLimit)}})

	for pages := 0; next != "" && pages < maxPlaylistPages; pages++ {
		if !c.sameOrigin(next) {
			break
		}

		var page struct {
			Items []json.RawMessage `json:"items"`
			Next  *string           `json:"next"`
		}
		if err := c.getJSON(ctx, accessToken, next, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Items...)

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return items, nil
}

func (c *Catalog) PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]core.TrackSummary, error) {
	var page struct {
		Items []struct {
			Track *apiTrack `json:"track"`
		} `json:"items"`
	}
	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	if err := c.getJSON(ctx, accessToken, c.endpoint(path, url.Values{"limit": {strconv.Itoa(pageLimit)}}), &page); err != nil {
		return nil, err
	}

	tracks := make([]core.TrackSummary, 0, len(page.Items))
	for _, item := range page.Items {
		// Removed or local tracks come back as null
		if item.Track == nil {
			continue
		}
		tracks = append(tracks, core.TrackSummary{
			Name:    item.Track.Name,
			Artists: artistNames(item.Track.Artists),
		})
	}
	return tracks, nil
}

func (c *Catalog) UpdatePlaylist(ctx context.Context, accessToken, playlistID string, update core.PlaylistUpdate) error {
	_, err := c.do(ctx, accessToken, http.MethodPut, c.endpoint("/playlists/"+url.PathEscape(playlistID), nil), update)
	return err
}

func (c *Catalog) UnfollowPlaylist(ctx context.Context, accessToken, playlistID string) error {
	_, err := c.do(ctx, accessToken, http.MethodDelete, c.endpoint("/playlists/"+url.PathEscape(playlistID)+"/followers", nil), nil)
	return err
}

// CreatePlaylist creates a private playlist for ownerID.
func (c *Catalog) CreatePlaylist(ctx context.Context, accessToken, ownerID, name string) (*core.Playlist, error) {
	body := struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}{Name: name}

	raw, err := c.do(ctx, accessToken, http.MethodPost, c.endpoint("/users/"+url.PathEscape(ownerID)+"/playlists", nil), body)
	if err != nil {
		return nil, err
	}

	var created struct {
		ID           string `json:"id"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("failed to decode playlist: %w", err)
	}
	return &core.Playlist{ID: created.ID, URL: created.ExternalURLs.Spotify}, nil
}

func (c *Catalog) AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) error {
	body := struct {
		URIs []string `json:"uris"`
	}{URIs: uris}
	_, err := c.do(ctx, accessToken, http.MethodPost, c.endpoint("/playlists/"+url.PathEscape(playlistID)+"/tracks", nil), body)
	return err
}

func (c *Catalog) RecentlyPlayed(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.getRaw(ctx, accessToken, c.endpoint("/me/player/recently-played", url.Values{"limit": {strconv.Itoa(recentLimit)}}))
}

func (c *Catalog) GenreSeeds(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.getRaw(ctx, accessToken, c.endpoint("/recommendations/available-genre-seeds", nil))
}

// endpoint joins an already escaped path onto the API base.
func (c *Catalog) endpoint(path string, query url.Values) string {
	endpoint := strings.TrimRight(c.base.String(), "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

func (c *Catalog) sameOrigin(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == c.base.Scheme && u.Host == c.base.Host
}

func (c *Catalog) getRaw(ctx context.Context, accessToken, endpoint string) (json.RawMessage, error) {
	raw, err := c.do(ctx, accessToken, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("upstream returned invalid json")
	}
	return json.RawMessage(raw), nil
}

func (c *Catalog) getJSON(ctx context.Context, accessToken, endpoint string, dest any) error {
	raw, err := c.do(ctx, accessToken, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do sends one bearer-authenticated request. Any non-2xx answer becomes a
// *core.UpstreamError carrying the upstream status and body.
func (c *Catalog) do(ctx context.Context, accessToken, method, endpoint string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
