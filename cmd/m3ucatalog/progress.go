package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/voyagen/m3ucatalog/internal/catalog"
	"github.com/voyagen/m3ucatalog/internal/service"
)

// progressPrinter renders load progress on a single terminal line.
type progressPrinter struct {
	w        io.Writer
	mu       sync.Mutex
	last     time.Time
	lastSeen service.Phase
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// Print writes p, at most every 100ms unless the phase changed.
func (pp *progressPrinter) Print(p service.Progress) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if p.Phase == pp.lastSeen && time.Since(pp.last) < 100*time.Millisecond {
		return
	}
	pp.last = time.Now()
	pp.lastSeen = p.Phase

	var line string
	switch p.Phase {
	case service.PhaseDownload:
		if p.Total > 0 {
			line = fmt.Sprintf("download %3d%%  %s / %s", p.Percent, humanize.Bytes(uint64(p.Loaded)), humanize.Bytes(uint64(p.Total)))
			if p.ETASeconds > 0 {
				line += fmt.Sprintf("  eta %s", time.Duration(p.ETASeconds)*time.Second)
			}
		} else {
			line = fmt.Sprintf("download       %s", humanize.Bytes(uint64(p.Loaded)))
		}
	case service.PhaseParse:
		line = fmt.Sprintf("parse    %3d%%  %s entries", p.Percent, humanize.Comma(int64(p.Entries)))
	case service.PhaseFailed:
		line = "failed: " + p.Error
	default:
		line = fmt.Sprintf("%-8s %3d%%", p.Phase, p.Percent)
	}
	fmt.Fprintf(pp.w, "\r\x1b[K%s", line)
	if !p.Active() {
		fmt.Fprintln(pp.w)
	}
}

// printSummary writes a human-readable description of a load result.
func printSummary(w io.Writer, res *service.Result) {
	origin := "downloaded from " + res.Source
	if res.FromCache {
		origin = "from cache, saved " + humanize.Time(res.Timestamp)
	}
	fmt.Fprintf(w, "catalog %s: %s entries (%s)\n", res.RunID, humanize.Comma(int64(res.Catalog.Len())), origin)
	if res.Bytes > 0 {
		fmt.Fprintf(w, "  %s in %s\n", humanize.Bytes(uint64(res.Bytes)), res.Duration.Round(time.Millisecond))
	}
	if !res.Persisted {
		fmt.Fprintln(w, "  warning: catalog could not be cached")
	}

	byType := catalog.CountByType(res.Catalog)
	types := make([]string, 0, len(byType))
	for t, n := range byType {
		types = append(types, fmt.Sprintf("%s=%s", t, humanize.Comma(int64(n))))
	}
	sort.Strings(types)
	fmt.Fprintf(w, "  types: %s\n", strings.Join(types, " "))
	fmt.Fprintf(w, "  categories: %s\n", humanize.Comma(int64(len(res.Catalog.Categories))))
}

func formatBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}
