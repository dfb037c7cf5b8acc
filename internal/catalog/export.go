package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/voyagen/m3ucatalog/internal/models"
)

// CompactItem is one entry in the compact export: name, group index, logo, url.
type CompactItem struct {
	N string `json:"n,omitempty"`
	G *int   `json:"g,omitempty"`
	L string `json:"l,omitempty"`
	U string `json:"u"`
}

// Compact is the compact export document: group names in first-seen order
// and items referencing them by index.
type Compact struct {
	Groups []string      `json:"g"`
	Items  []CompactItem `json:"i"`
}

// ToCompact converts c into the compact export shape. Entries without a
// declared group carry no group index.
func ToCompact(c *models.Catalog) *Compact {
	out := &Compact{Groups: []string{}, Items: make([]CompactItem, 0, c.Len())}
	if c == nil {
		return out
	}
	index := make(map[string]int)
	for _, e := range c.Entries {
		item := CompactItem{N: e.Name, L: e.Logo, U: e.URL}
		if e.Group != "" {
			gi, ok := index[e.Group]
			if !ok {
				gi = len(out.Groups)
				index[e.Group] = gi
				out.Groups = append(out.Groups, e.Group)
			}
			item.G = &gi
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// Export writes the compact JSON document for c to w, gzip-compressed at
// best compression when gz is true.
func Export(w io.Writer, c *models.Catalog, gz bool) error {
	doc := ToCompact(c)
	if !gz {
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("export encode: %w", err)
		}
		return nil
	}

	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("export gzip: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		_ = zw.Close()
		return fmt.Errorf("export encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("export gzip close: %w", err)
	}
	return nil
}
