// Package classify assigns a media type to playlist entries from their
// group, name and URL using ordered keyword rules.
package classify

import (
	"strings"

	"github.com/voyagen/m3ucatalog/internal/models"
)

// Rules holds the keyword sets used by Classify. Keywords are matched as
// lower-case substrings. Rules are evaluated in order: Movies, Series and
// Channels against group and name, then LiveURLMarkers against the URL.
type Rules struct {
	Movies         []string `yaml:"movies" json:"movies"`
	Series         []string `yaml:"series" json:"series"`
	Channels       []string `yaml:"channels" json:"channels"`
	LiveURLMarkers []string `yaml:"live_url_markers" json:"live_url_markers"`
}

// DefaultRules returns the built-in keyword sets (Portuguese and English).
func DefaultRules() Rules {
	return Rules{
		Movies:         []string{"filme", "filmes", "movie", "movies", "cinema", "lançamento", "dublado", "legendado"},
		Series:         []string{"série", "series", "temporada", "episódio", "episode", "season", "s0", "e0"},
		Channels:       []string{"tv", "canal", "channel", "ao vivo", "live", "hd", "fhd", "sd", "24h", "aberto"},
		LiveURLMarkers: []string{".m3u8", "/live/"},
	}
}

// Merge returns r with every empty keyword set replaced by the one in base.
func (r Rules) Merge(base Rules) Rules {
	if len(r.Movies) == 0 {
		r.Movies = base.Movies
	}
	if len(r.Series) == 0 {
		r.Series = base.Series
	}
	if len(r.Channels) == 0 {
		r.Channels = base.Channels
	}
	if len(r.LiveURLMarkers) == 0 {
		r.LiveURLMarkers = base.LiveURLMarkers
	}
	return r.normalized()
}

// normalized lower-cases keywords so configured values match like the defaults.
func (r Rules) normalized() Rules {
	return Rules{
		Movies:         lowerAll(r.Movies),
		Series:         lowerAll(r.Series),
		Channels:       lowerAll(r.Channels),
		LiveURLMarkers: lowerAll(r.LiveURLMarkers),
	}
}

// Classify returns the media type for an entry. The first matching rule wins.
func (r Rules) Classify(group, name, url string) models.MediaType {
	g := strings.ToLower(group)
	n := strings.ToLower(name)

	switch {
	case containsAny(r.Movies, g, n):
		return models.MediaTypeMovies
	case containsAny(r.Series, g, n):
		return models.MediaTypeSeries
	case containsAny(r.Channels, g, n):
		return models.MediaTypeChannels
	case containsAny(r.LiveURLMarkers, strings.ToLower(url)):
		return models.MediaTypeChannels
	}
	return models.MediaTypeOther
}

// Entry classifies e by its own fields.
func (r Rules) Entry(e models.MediaEntry) models.MediaType {
	return r.Classify(e.Group, e.Name, e.URL)
}

func containsAny(keywords []string, fields ...string) bool {
	for _, k := range keywords {
		if k == "" {
			continue
		}
		for _, f := range fields {
			if strings.Contains(f, k) {
				return true
			}
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
