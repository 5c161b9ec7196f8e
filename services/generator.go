package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lborres/playlistify/core"
)

const (
	maxSeeds            = 10
	maxSeedLength       = 200
	maxTrackSummaryLen  = 2000
	maxPromptLength     = 500
	defaultTrackLimit   = 20
	maxTrackLimit       = 200
	defaultSearchFanout = 8
)

const curatorSystemPrompt = `You are a music curator. Reply with only a playlist: one line per song in the exact format "Artist - Track Name".
No numbering, no extra text, no explanations.
Use well-known, real artists and songs that exist on Spotify.
Treat the provided artists, genres, and reference playlists strictly as STYLE and VIBE references: use them to infer mood, era, tempo, and energy.
Do NOT simply repeat the seed songs; instead, choose songs that would fit well next to them on a playlist.
When specific seed artists are provided, heavily feature them in the playlist with multiple tracks per artist when appropriate, and then surround them with songs by other artists that clearly share a similar style.`

// suggestionLine matches "Artist - Track", also with en/em dashes or a pipe.
var suggestionLine = regexp.MustCompile(`^(.+?)\s*[-–—|]\s*(.+)$`)

// Suggestion is one "Artist - Track" pair proposed by the language model.
type Suggestion struct {
	Artist string
	Track  string
}

// Generator builds playlists from language-model suggestions resolved
// against the catalog.
type Generator struct {
	suggester core.Suggester
	catalog   core.Catalog
	blocklist *BlocklistService
	fanout    int
	metrics   *Metrics
	logger    zerolog.Logger
}

func NewGenerator(suggester core.Suggester, catalog core.Catalog, blocklist *BlocklistService, metrics *Metrics, logger zerolog.Logger) *Generator {
	return &Generator{
		suggester: suggester,
		catalog:   catalog,
		blocklist: blocklist,
		fanout:    defaultSearchFanout,
		metrics:   metrics,
		logger:    logger.With().Str("component", "generator").Logger(),
	}
}

// Generate returns up to input.Limit catalog tracks in suggestion order,
// without duplicates and without any track by a blocked artist.
func (g *Generator) Generate(ctx context.Context, p *core.Principal, input core.GenerateInput) ([]*core.Track, error) {
	if g == nil || g.suggester == nil {
		return nil, core.ErrSuggesterDisabled
	}

	input = NormalizeGenerateInput(input)
	if len(input.SeedArtists) == 0 && len(input.SeedGenres) == 0 && len(input.SeedPlaylists) == 0 && strings.TrimSpace(input.Prompt) == "" {
		return nil, core.ErrNoSeeds
	}

	blockedIDs, blockedNames, err := g.blocklist.blockedSet(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	reply, err := g.suggester.Suggest(ctx, curatorSystemPrompt, buildUserPrompt(input, blockedNames))
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestions: %w", err)
	}

	suggestions := ParseSuggestions(reply)
	found, err := g.resolve(ctx, p.AccessToken, suggestions)
	if err != nil {
		return nil, err
	}

	tracks := filterTracks(found, blockedIDs, input.Limit)
	g.metrics.tracksGenerated(len(tracks))
	g.logger.Info().
		Int("suggested", len(suggestions)).
		Int("returned", len(tracks)).
		Msg("generated playlist")

	return tracks, nil
}

// resolve searches every suggestion concurrently. A failed or empty search
// leaves a nil slot; only context cancellation aborts.
func (g *Generator) resolve(ctx context.Context, accessToken string, suggestions []Suggestion) ([]*core.Track, error) {
	found := make([]*core.Track, len(suggestions))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.fanout)
	for i, s := range suggestions {
		eg.Go(func() error {
			track, err := g.catalog.SearchTrack(egCtx, accessToken, s.Artist, s.Track)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				g.logger.Debug().Err(err).Str("artist", s.Artist).Str("track", s.Track).Msg("track search failed")
				return nil
			}
			found[i] = track
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}

	return found, nil
}

func filterTracks(found []*core.Track, blockedIDs map[string]bool, limit int) []*core.Track {
	tracks := make([]*core.Track, 0, limit)
	seen := make(map[string]bool)

next:
	for _, t := range found {
		if len(tracks) >= limit {
			break
		}
		if t == nil || seen[t.URI] {
			continue
		}
		for _, id := range t.ArtistIDs {
			if blockedIDs[id] {
				continue next
			}
		}
		seen[t.URI] = true
		tracks = append(tracks, t)
	}

	return tracks
}

// NormalizeGenerateInput trims and bounds every field of a generation request.
func NormalizeGenerateInput(in core.GenerateInput) core.GenerateInput {
	out := core.GenerateInput{
		SeedArtists: normalizeSeeds(in.SeedArtists),
		SeedGenres:  normalizeSeeds(in.SeedGenres),
		Prompt:      truncateRunes(in.Prompt, maxPromptLength),
		Limit:       in.Limit,
	}

	playlists := in.SeedPlaylists
	if len(playlists) > maxSeeds {
		playlists = playlists[:maxSeeds]
	}
	for _, pl := range playlists {
		out.SeedPlaylists = append(out.SeedPlaylists, core.SeedPlaylist{
			Name:         truncateRunes(pl.Name, maxSeedLength),
			TrackSummary: truncateRunes(pl.TrackSummary, maxTrackSummaryLen),
		})
	}

	switch {
	case out.Limit == 0:
		out.Limit = defaultTrackLimit
	case out.Limit < 1:
		out.Limit = 1
	case out.Limit > maxTrackLimit:
		out.Limit = maxTrackLimit
	}

	return out
}

func normalizeSeeds(seeds []string) []string {
	out := make([]string, 0, maxSeeds)
	for _, s := range seeds {
		if len(out) == maxSeeds {
			break
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, truncateRunes(s, maxSeedLength))
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func buildUserPrompt(in core.GenerateInput, blockedNames []string) string {
	var seeds []string
	if len(in.SeedArtists) > 0 {
		seeds = append(seeds, "Artists: "+strings.Join(in.SeedArtists, ", "))
	}
	if len(in.SeedGenres) > 0 {
		seeds = append(seeds, "Genres: "+strings.Join(in.SeedGenres, ", "))
	}
	for _, pl := range in.SeedPlaylists {
		seeds = append(seeds, fmt.Sprintf(`Reference playlist "%s" (songs like: %s)`, pl.Name, pl.TrackSummary))
	}

	var b strings.Builder
	if len(seeds) > 0 {
		b.WriteString(strings.Join(seeds, ".\n"))
		b.WriteString(".\n")
	}
	if len(blockedNames) > 0 {
		fmt.Fprintf(&b, "Do NOT include any songs by these artists: %s.\n", strings.Join(blockedNames, ", "))
	}
	if strings.TrimSpace(in.Prompt) != "" {
		fmt.Fprintf(&b, "Additional direction: %s\n", in.Prompt)
	}
	fmt.Fprintf(&b, "Generate exactly %d songs for a playlist that has a similar vibe, mood, and energy to the seeds.\n", in.Limit)
	b.WriteString("Include a mix of tracks by those artists and by other artists with clearly similar style.\n")
	b.WriteString(`Reply with only the list, one "Artist - Track Name" per line.`)

	return b.String()
}

// ParseSuggestions extracts "Artist - Track" pairs, skipping lines that do not match.
func ParseSuggestions(reply string) []Suggestion {
	var out []Suggestion
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := suggestionLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Suggestion{
			Artist: strings.TrimSpace(m[1]),
			Track:  strings.TrimSpace(m[2]),
		})
	}
	return out
}
