package models

import "time"

// Catalog is the result of one ingestion run: every entry in emission order
// and the category index. Categories maps a category key to the ids of its
// entries in the order they were encountered; an id is also the entry's
// index in Entries.
type Catalog struct {
	Entries    []MediaEntry     `json:"items"`
	Categories map[string][]int `json:"categories"`
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// Entry returns the entry with the given id.
func (c *Catalog) Entry(id int) (MediaEntry, bool) {
	if c == nil || id < 0 || id >= len(c.Entries) {
		return MediaEntry{}, false
	}
	return c.Entries[id], true
}

// Category returns the entries filed under key, in first-seen order.
func (c *Catalog) Category(key string) []MediaEntry {
	if c == nil {
		return nil
	}
	ids := c.Categories[key]
	out := make([]MediaEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.Entry(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// CacheRecord is a persisted catalog snapshot. It serializes as
// {"id", "items", "categories", "timestamp"} with timestamp in epoch milliseconds.
type CacheRecord struct {
	Key string `json:"id"`
	Catalog
	Timestamp int64 `json:"timestamp"`
}

// NewCacheRecord builds a record for catalog stamped with now.
func NewCacheRecord(key string, catalog *Catalog, now time.Time) *CacheRecord {
	rec := &CacheRecord{Key: key, Timestamp: now.UnixMilli()}
	if catalog != nil {
		rec.Catalog = *catalog
	}
	return rec
}

// CreatedAt returns the record timestamp as a time.Time.
func (r *CacheRecord) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Age returns how old the record is relative to now.
func (r *CacheRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt())
}
