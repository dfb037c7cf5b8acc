package classify

import (
	"testing"

	"github.com/voyagen/m3ucatalog/internal/models"
)

func TestClassify(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		name  string
		group string
		title string
		url   string
		want  models.MediaType
	}{
		{"movie group", "Filmes", "Matrix", "http://cdn/matrix.mp4", models.MediaTypeMovies},
		{"movie keyword in name", "Acervo", "Matrix Dublado", "http://cdn/x", models.MediaTypeMovies},
		{"movie beats series", "Filmes e Séries", "Matrix", "http://cdn/x", models.MediaTypeMovies},
		{"series group", "Séries Netflix", "Dark", "http://cdn/x", models.MediaTypeSeries},
		{"series episode prefix", "Acervo", "Dark S01E02", "http://cdn/x", models.MediaTypeSeries},
		{"series beats channel", "Series HD", "Dark", "http://cdn/x", models.MediaTypeSeries},
		{"channel group", "Canais Abertos", "Globo", "http://cdn/x", models.MediaTypeChannels},
		{"channel and live url", "Esportes TV", "ESPN", "http://cdn/live/espn.m3u8", models.MediaTypeChannels},
		{"live url only", "Esportes", "ESPN", "http://cdn/live/espn", models.MediaTypeChannels},
		{"manifest url only", "Esportes", "ESPN", "http://cdn/espn.M3U8", models.MediaTypeChannels},
		{"nothing matches", "Esportes", "ESPN", "http://cdn/espn.ts", models.MediaTypeOther},
		{"empty fields", "", "", "http://cdn/x", models.MediaTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Classify(tt.group, tt.title, tt.url); got != tt.want {
				t.Errorf("Classify(%q, %q, %q) = %q, want %q", tt.group, tt.title, tt.url, got, tt.want)
			}
		})
	}
}

func TestClassifyURLDoesNotFeedKeywordRules(t *testing.T) {
	// "movie" in the url alone must not make an entry a movie.
	r := DefaultRules()
	if got := r.Classify("Esportes", "ESPN", "http://cdn/movie/espn.ts"); got != models.MediaTypeOther {
		t.Errorf("got %q, want %q", got, models.MediaTypeOther)
	}
}

func TestMergeKeepsOverridesAndNormalizes(t *testing.T) {
	custom := Rules{Movies: []string{" PELÍCULA ", ""}}
	r := custom.Merge(DefaultRules())

	if len(r.Movies) != 1 || r.Movies[0] != "película" {
		t.Fatalf("Movies = %v, want [película]", r.Movies)
	}
	if len(r.Series) != len(DefaultRules().Series) {
		t.Errorf("Series not inherited from defaults: %v", r.Series)
	}
	if got := r.Classify("Película", "x", "http://a"); got != models.MediaTypeMovies {
		t.Errorf("custom keyword not applied: %q", got)
	}
	if got := r.Classify("Filmes", "x", "http://a"); got != models.MediaTypeOther {
		t.Errorf("overridden movie keywords still active: %q", got)
	}
}

func TestEntry(t *testing.T) {
	e := models.MediaEntry{Group: "Canal 24h", Name: "News", URL: "http://x"}
	if got := DefaultRules().Entry(e); got != models.MediaTypeChannels {
		t.Errorf("Entry = %q, want channels", got)
	}
}
