package models

// MediaType is the content type tag assigned to every entry by the classifier.
type MediaType string

// Media type constants.
const (
	MediaTypeMovies   MediaType = "movies"
	MediaTypeSeries   MediaType = "series"
	MediaTypeChannels MediaType = "channels"
	MediaTypeOther    MediaType = "other"
)

// MediaTypes lists every media type in display order.
var MediaTypes = []MediaType{MediaTypeMovies, MediaTypeSeries, MediaTypeChannels, MediaTypeOther}

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeMovies, MediaTypeSeries, MediaTypeChannels, MediaTypeOther:
		return true
	}
	return false
}

// FallbackCategory is the category key for entries without a group-title.
const FallbackCategory = "Outros"

// DefaultDuration is the duration assigned when a directive carries none (live/unknown).
const DefaultDuration = -1
