package parser

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/metrics"
	"github.com/voyagen/m3ucatalog/internal/models"
)

const (
	// DefaultBatchSize is the number of lines processed between yields.
	DefaultBatchSize = 5000
	// DefaultProgressBand is the upper bound of the parse progress percentage.
	// The rest of the 0-100 range is left to saving and publishing.
	DefaultProgressBand = 80
)

// Progress is reported after each batch.
type Progress struct {
	Lines      int
	TotalLines int
	Entries    int
	Percent    int
}

// Options tunes Parse. Zero values select the defaults.
type Options struct {
	BatchSize    int
	ProgressBand int
	// OnProgress is called with strictly increasing Percent values.
	OnProgress func(Progress)
	// Yield hands control back to the scheduler between batches.
	// Defaults to runtime.Gosched.
	Yield func()
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ProgressBand <= 0 || o.ProgressBand > 100 {
		o.ProgressBand = DefaultProgressBand
	}
	if o.Yield == nil {
		o.Yield = runtime.Gosched
	}
}

// Stats summarizes one Parse run.
type Stats struct {
	Lines     int
	Entries   int
	Discarded int
	Batches   int
}

// Parse scans text line by line and calls emit for every finalized entry,
// in input order. Every opts.BatchSize lines it reports progress, yields and
// checks ctx; a cancelled context stops the scan with ctx.Err().
func Parse(ctx context.Context, text string, c Classifier, emit func(models.MediaEntry), opts Options) (Stats, error) {
	opts.applyDefaults()

	sc := NewScanner(c)
	total := strings.Count(text, "\n") + 1
	lastPercent := -1
	var st Stats

	report := func(lines int) {
		pct := int(math.Round(float64(lines) / float64(total) * float64(opts.ProgressBand)))
		if pct <= lastPercent {
			return
		}
		lastPercent = pct
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Lines: lines, TotalLines: total, Entries: sc.Emitted(), Percent: pct})
		}
	}

	rest := text
	for more := true; more; {
		var line string
		line, rest, more = strings.Cut(rest, "\n")
		if e, ok := sc.Line(line); ok && emit != nil {
			emit(e)
			metrics.EntriesTotal.WithLabelValues(string(e.Type)).Inc()
		}
		st.Lines++

		if st.Lines%opts.BatchSize == 0 {
			st.Batches++
			report(st.Lines)
			if logging.IsDebugEnabled() {
				logging.Debug("parse: %d/%d lines, %d entries", st.Lines, total, sc.Emitted())
			}
			opts.Yield()
			if err := ctx.Err(); err != nil {
				metrics.ParseLinesTotal.Add(float64(st.Lines))
				return st, fmt.Errorf("parse cancelled at line %d: %w", st.Lines, err)
			}
		}
	}
	sc.Finish()
	report(st.Lines)

	st.Entries = sc.Emitted()
	st.Discarded = sc.Discarded()
	metrics.ParseLinesTotal.Add(float64(st.Lines))
	return st, nil
}
