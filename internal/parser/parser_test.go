package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/voyagen/m3ucatalog/internal/classify"
	"github.com/voyagen/m3ucatalog/internal/models"
)

func collect(t *testing.T, text string, opts Options) ([]models.MediaEntry, Stats) {
	t.Helper()
	var got []models.MediaEntry
	st, err := Parse(context.Background(), text, classify.DefaultRules(), func(e models.MediaEntry) {
		got = append(got, e)
	}, opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return got, st
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Directive
	}{
		{
			name: "all attributes",
			line: `#EXTINF:-1 tvg-id="globo.br" tvg-name="Globo SP" tvg-logo="http://x/g.png" group-title="Canais",Globo HD`,
			want: Directive{Duration: -1, Name: "Globo HD", Group: "Canais", Logo: "http://x/g.png", TvgID: "globo.br", TvgName: "Globo SP"},
		},
		{
			name: "attribute order does not matter",
			line: `#EXTINF:0 group-title="Filmes" tvg-name="M",Matrix`,
			want: Directive{Duration: 0, Name: "Matrix", Group: "Filmes", TvgName: "M"},
		},
		{
			name: "positive duration",
			line: `#EXTINF:3600,Long Show`,
			want: Directive{Duration: 3600, Name: "Long Show"},
		},
		{
			name: "missing duration defaults to -1",
			line: `#EXTINF: group-title="X",Name`,
			want: Directive{Duration: -1, Name: "Name", Group: "X"},
		},
		{
			name: "name after last comma",
			line: `#EXTINF:-1 group-title="A, B",Final Name `,
			want: Directive{Duration: -1, Name: "Final Name", Group: "A, B"},
		},
		{
			name: "empty name falls back to tvg-name",
			line: `#EXTINF:-1 tvg-name="Fallback",`,
			want: Directive{Duration: -1, Name: "Fallback", TvgName: "Fallback"},
		},
		{
			name: "no comma at all",
			line: `#EXTINF:-1 tvg-name="Only Tvg"`,
			want: Directive{Duration: -1, Name: "Only Tvg", TvgName: "Only Tvg"},
		},
		{
			name: "nothing extractable",
			line: `#EXTINF:`,
			want: Directive{Duration: -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDirective(tt.line); got != tt.want {
				t.Errorf("ParseDirective(%q)\n got %+v\nwant %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseMatrixScenario(t *testing.T) {
	text := "#EXTINF:-1 group-title=\"Filmes\" tvg-logo=\"http://x/y.png\",Matrix\nhttp://cdn/matrix.m3u8\n"
	got, st := collect(t, text, Options{})

	want := models.MediaEntry{
		ID:       0,
		Name:     "Matrix",
		Group:    "Filmes",
		Logo:     "http://x/y.png",
		Duration: -1,
		URL:      "http://cdn/matrix.m3u8",
		Type:     models.MediaTypeMovies,
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0] != want {
		t.Errorf("entry\n got %+v\nwant %+v", got[0], want)
	}
	if st.Entries != 1 || st.Discarded != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestParseOrphanDirective(t *testing.T) {
	text := strings.Join([]string{
		"#EXTM3U",
		`#EXTINF:-1,Orphan`,
		`#EXTINF:-1,Kept`,
		"http://cdn/kept",
		`#EXTINF:-1,Trailing`,
	}, "\n")
	got, st := collect(t, text, Options{})

	if len(got) != 1 || got[0].Name != "Kept" || got[0].ID != 0 {
		t.Fatalf("entries = %+v, want only Kept with id 0", got)
	}
	if st.Discarded != 2 {
		t.Errorf("Discarded = %d, want 2", st.Discarded)
	}
}

func TestParseSkipsCommentsBlanksAndStrayLocators(t *testing.T) {
	text := strings.Join([]string{
		"#EXTM3U",
		"http://cdn/stray",
		`#EXTINF:-1 group-title="Séries",Dark S01E01`,
		"",
		"#EXTVLCOPT:http-user-agent=Foo",
		"   ",
		"http://cdn/dark1\r",
		"http://cdn/stray2",
	}, "\n")
	got, _ := collect(t, text, Options{})

	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(got), got)
	}
	if got[0].URL != "http://cdn/dark1" {
		t.Errorf("URL = %q, want trimmed locator", got[0].URL)
	}
	if got[0].Type != models.MediaTypeSeries {
		t.Errorf("Type = %q, want series", got[0].Type)
	}
}

func TestParseIDsAreDense(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 250; i++ {
		if i%7 == 0 {
			b.WriteString("#EXTINF:-1,orphan\n")
		}
		fmt.Fprintf(&b, "#EXTINF:-1,Item %d\nhttp://cdn/%d\n", i, i)
	}
	got, _ := collect(t, b.String(), Options{BatchSize: 16})

	if len(got) != 250 {
		t.Fatalf("got %d entries, want 250", len(got))
	}
	for i, e := range got {
		if e.ID != i {
			t.Fatalf("entry %d has id %d", i, e.ID)
		}
		if e.URL == "" {
			t.Fatalf("entry %d has empty url", i)
		}
	}
}

func TestParseLargeInputYieldsWithMonotonicProgress(t *testing.T) {
	const n = 100000
	var b strings.Builder
	b.Grow(n * 48)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "#EXTINF:-1 group-title=\"G%d\",Item %d\nhttp://cdn/%d.ts\n", i%10, i, i)
	}

	var percents []int
	yields := 0
	got, st := collect(t, b.String(), Options{
		OnProgress: func(p Progress) { percents = append(percents, p.Percent) },
		Yield:      func() { yields++ },
	})

	if len(got) != n || st.Entries != n {
		t.Fatalf("got %d entries (stats %d), want %d", len(got), st.Entries, n)
	}
	if yields == 0 {
		t.Fatal("parser never yielded")
	}
	if yields != st.Batches {
		t.Errorf("yields = %d, batches = %d", yields, st.Batches)
	}
	if len(percents) < 2 {
		t.Fatalf("progress reported %d times, want at least 2", len(percents))
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] <= percents[i-1] {
			t.Fatalf("progress not strictly increasing: %v", percents)
		}
	}
	if last := percents[len(percents)-1]; last != DefaultProgressBand {
		t.Errorf("final progress = %d, want %d", last, DefaultProgressBand)
	}
}

func TestParseHonoursCancellation(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "#EXTINF:-1,Item %d\nhttp://cdn/%d\n", i, i)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count := 0
	st, err := Parse(ctx, b.String(), nil, func(models.MediaEntry) { count++ }, Options{BatchSize: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if st.Lines != 10 || count != 5 {
		t.Errorf("stopped after %d lines / %d entries, want 10 / 5", st.Lines, count)
	}
}

func TestScannerWithoutClassifier(t *testing.T) {
	sc := NewScanner(nil)
	sc.Line("#EXTINF:-1,X")
	e, ok := sc.Line("http://x")
	if !ok || e.Type != models.MediaTypeOther {
		t.Fatalf("got %+v, %v", e, ok)
	}
	if sc.Emitted() != 1 {
		t.Errorf("Emitted = %d", sc.Emitted())
	}
}

func TestClassifierFunc(t *testing.T) {
	c := ClassifierFunc(func(_, _, url string) models.MediaType {
		if strings.HasSuffix(url, ".mp4") {
			return models.MediaTypeMovies
		}
		return models.MediaTypeOther
	})
	sc := NewScanner(c)
	sc.Line("#EXTINF:-1,X")
	if e, _ := sc.Line("http://x/a.mp4"); e.Type != models.MediaTypeMovies {
		t.Errorf("Type = %q", e.Type)
	}
}
