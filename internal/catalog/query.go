package catalog

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/voyagen/m3ucatalog/internal/models"
)

// Query holds optional filters for listing entries.
type Query struct {
	Type     models.MediaType // empty = all types
	Category string           // exact category key; empty = all
	Search   string           // case-insensitive substring on name, group, tvg-name
	Limit    int              // default 50, max 500
	Offset   int
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Normalize applies limit/offset defaults and bounds.
func (q Query) Normalize() Query {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Search = strings.ToLower(strings.TrimSpace(q.Search))
	return q
}

// Filter returns the page of entries matching q and the total match count
// (before limit/offset). Results keep catalog order.
func Filter(c *models.Catalog, q Query) ([]models.MediaEntry, int) {
	q = q.Normalize()
	if c == nil {
		return nil, 0
	}

	candidates := c.Entries
	if q.Category != "" {
		candidates = c.Category(q.Category)
	}

	var page []models.MediaEntry
	total := 0
	for _, e := range candidates {
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		if q.Search != "" && !matchesSearch(e, q.Search) {
			continue
		}
		if total >= q.Offset && len(page) < q.Limit {
			page = append(page, e)
		}
		total++
	}
	return page, total
}

func matchesSearch(e models.MediaEntry, needle string) bool {
	return strings.Contains(strings.ToLower(e.Name), needle) ||
		strings.Contains(strings.ToLower(e.Group), needle) ||
		strings.Contains(strings.ToLower(e.TvgName), needle)
}

// Categories returns every category with its entry count, sorted by name.
func Categories(c *models.Catalog) []models.Category {
	if c == nil {
		return nil
	}
	out := make([]models.Category, 0, len(c.Categories))
	for name, ids := range c.Categories {
		out = append(out, models.Category{Name: name, Count: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CountByType returns the number of entries of each media type.
func CountByType(c *models.Catalog) map[models.MediaType]int {
	counts := make(map[models.MediaType]int, len(models.MediaTypes))
	for _, t := range models.MediaTypes {
		counts[t] = 0
	}
	if c == nil {
		return counts
	}
	for _, e := range c.Entries {
		counts[e.Type]++
	}
	return counts
}

// Featured picks a highlight entry: uniformly at random among entries with a
// non-blank logo, otherwise the first entry. ok is false for an empty catalog.
// rng may be nil to use the package-level generator.
func Featured(c *models.Catalog, rng *rand.Rand) (models.MediaEntry, bool) {
	if c.Len() == 0 {
		return models.MediaEntry{}, false
	}
	var withLogo []int
	for i, e := range c.Entries {
		if strings.TrimSpace(e.Logo) != "" {
			withLogo = append(withLogo, i)
		}
	}
	if len(withLogo) == 0 {
		return c.Entries[0], true
	}
	var n int
	if rng != nil {
		n = rng.IntN(len(withLogo))
	} else {
		n = rand.IntN(len(withLogo))
	}
	return c.Entries[withLogo[n]], true
}

// ForceHTTPS rewrites an http:// URL to https://. Other values are returned unchanged.
func ForceHTTPS(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
