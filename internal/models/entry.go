package models

// MediaEntry represents a single playable item from an M3U playlist
// (one #EXTINF directive plus the locator line that follows it).
type MediaEntry struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Group    string    `json:"group"`
	Logo     string    `json:"logo"`
	TvgID    string    `json:"tvgId"`
	TvgName  string    `json:"tvgName"`
	Duration int       `json:"duration"`
	URL      string    `json:"url"`
	Type     MediaType `json:"type"`
}

// CategoryKey returns the bucket the entry belongs to: its group, or
// FallbackCategory when the playlist declared none.
func (e MediaEntry) CategoryKey() string {
	if e.Group != "" {
		return e.Group
	}
	return FallbackCategory
}
