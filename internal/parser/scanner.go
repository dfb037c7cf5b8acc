// Package parser turns M3U playlist text into media entries.
//
// Scanner is the line-level state machine; Parse drives it over a whole
// document in fixed-size batches, reporting progress and yielding to the
// scheduler between batches so large playlists never monopolize a thread.
package parser

import (
	"strings"

	"github.com/voyagen/m3ucatalog/internal/models"
)

// Classifier assigns a media type to a finalized entry.
type Classifier interface {
	Classify(group, name, url string) models.MediaType
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(group, name, url string) models.MediaType

// Classify calls f.
func (f ClassifierFunc) Classify(group, name, url string) models.MediaType {
	return f(group, name, url)
}

type state int

const (
	awaitingDirective state = iota
	awaitingURL
)

// Scanner consumes playlist lines one at a time. A directive line opens a
// pending record; the next non-empty, non-comment line closes it. Orphan
// directives and locators without a directive produce nothing.
type Scanner struct {
	classifier Classifier
	state      state
	pending    Directive
	nextID     int
	discarded  int
}

// NewScanner returns a Scanner whose ids start at 0.
func NewScanner(c Classifier) *Scanner {
	return &Scanner{classifier: c}
}

// Line feeds one raw line. It returns the finalized entry when the line
// completes a pending directive.
func (s *Scanner) Line(raw string) (models.MediaEntry, bool) {
	line := strings.TrimSpace(raw)

	if strings.HasPrefix(line, DirectivePrefix) {
		if s.state == awaitingURL {
			s.discarded++
		}
		s.pending = ParseDirective(line)
		s.state = awaitingURL
		return models.MediaEntry{}, false
	}

	if s.state != awaitingURL || line == "" || strings.HasPrefix(line, "#") {
		return models.MediaEntry{}, false
	}

	d := s.pending
	typ := models.MediaTypeOther
	if s.classifier != nil {
		typ = s.classifier.Classify(d.Group, d.Name, line)
	}
	e := d.Entry(s.nextID, line, typ)
	s.nextID++
	s.pending = Directive{}
	s.state = awaitingDirective
	return e, true
}

// Finish drops any pending directive left at end of input.
func (s *Scanner) Finish() {
	if s.state == awaitingURL {
		s.discarded++
	}
	s.pending = Directive{}
	s.state = awaitingDirective
}

// Emitted returns the number of entries finalized so far.
func (s *Scanner) Emitted() int { return s.nextID }

// Discarded returns the number of directives dropped for lack of a locator.
func (s *Scanner) Discarded() int { return s.discarded }
