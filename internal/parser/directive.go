package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/voyagen/m3ucatalog/internal/models"
)

// DirectivePrefix marks a directive line; the locator line follows it.
const DirectivePrefix = "#EXTINF:"

var (
	reDuration = regexp.MustCompile(`^#EXTINF:\s*(-?\d+)`)
	reTvgName  = regexp.MustCompile(`tvg-name="([^"]*)"`)
	reTvgID    = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgLogo  = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup    = regexp.MustCompile(`group-title="([^"]*)"`)
)

// Directive holds the fields extracted from one #EXTINF line, before the
// locator is known.
type Directive struct {
	Duration int
	Name     string
	Group    string
	Logo     string
	TvgID    string
	TvgName  string
}

// ParseDirective extracts the directive fields from an #EXTINF line.
// Attributes may appear in any order; missing ones are left empty and a
// missing duration defaults to -1. The name is the trimmed text after the
// last comma, falling back to tvg-name.
func ParseDirective(line string) Directive {
	d := Directive{
		Duration: models.DefaultDuration,
		Group:    matchFirst(reGroup, line),
		Logo:     matchFirst(reTvgLogo, line),
		TvgID:    matchFirst(reTvgID, line),
		TvgName:  matchFirst(reTvgName, line),
	}
	if m := reDuration.FindStringSubmatch(line); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			d.Duration = n
		}
	}
	if i := strings.LastIndex(line, ","); i >= 0 {
		d.Name = strings.TrimSpace(line[i+1:])
	}
	if d.Name == "" {
		d.Name = d.TvgName
	}
	return d
}

// Entry completes the directive with its locator, id and media type.
func (d Directive) Entry(id int, url string, typ models.MediaType) models.MediaEntry {
	return models.MediaEntry{
		ID:       id,
		Name:     d.Name,
		Group:    d.Group,
		Logo:     d.Logo,
		TvgID:    d.TvgID,
		TvgName:  d.TvgName,
		Duration: d.Duration,
		URL:      url,
		Type:     typ,
	}
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
