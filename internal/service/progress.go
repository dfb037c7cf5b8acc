package service

import "time"

// Phase names the step a load is in.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseCache    Phase = "cache"
	PhaseDownload Phase = "download"
	PhaseParse    Phase = "parse"
	PhaseSave     Phase = "save"
	PhaseDone     Phase = "done"
	PhaseFailed   Phase = "failed"
)

// Percent milestones for the phases after parsing.
const (
	savePercent = 90
	donePercent = 100
)

// Progress is a snapshot of the current or last load.
// During PhaseDownload, Percent is the share of bytes received (0 while the
// size is unknown, signalled by Total == -1). During PhaseParse it runs from 0
// to the parser's progress band.
type Progress struct {
	RunID      string    `json:"runId,omitempty"`
	Phase      Phase     `json:"phase"`
	Percent    int       `json:"percent"`
	Loaded     int64     `json:"loaded,omitempty"`
	Total      int64     `json:"total,omitempty"`
	ETASeconds int       `json:"etaSeconds,omitempty"`
	Entries    int       `json:"entries,omitempty"`
	Source     string    `json:"source,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Active reports whether the snapshot belongs to a load still in progress.
func (p Progress) Active() bool {
	switch p.Phase {
	case PhaseIdle, PhaseDone, PhaseFailed:
		return false
	}
	return true
}

// downloadPercent converts a byte count to 0-100. Unknown totals report 0.
func downloadPercent(loaded, total int64) int {
	if total <= 0 {
		return 0
	}
	if loaded >= total {
		return 100
	}
	return int(loaded * 100 / total)
}

// eta extrapolates the remaining download time from the rate so far.
func eta(elapsed time.Duration, loaded, total int64) time.Duration {
	if total <= 0 || loaded <= 0 || loaded >= total {
		return 0
	}
	rate := float64(loaded) / elapsed.Seconds()
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(total-loaded) / rate * float64(time.Second))
}
