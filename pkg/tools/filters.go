package tools

import (
	"strings"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

// searchFilters narrows search results beyond what the server query
// supports. All fields are optional.
type searchFilters struct {
	Genre      string  `json:"genre"`
	Year       int     `json:"year"`
	Actor      string  `json:"actor"`
	Director   string  `json:"director"`
	Studio     string  `json:"studio"`
	Network    string  `json:"network"`
	Resolution string  `json:"resolution"`
	Watched    *bool   `json:"watched"`
	MinRating  float64 `json:"minRating"`
}

// apply keeps items matching every set filter.
func (f searchFilters) apply(items []plex.Metadata) []plex.Metadata {
	if f == (searchFilters{}) {
		return items
	}

	var kept []plex.Metadata
	for _, item := range items {
		if f.matches(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

func (f searchFilters) matches(item plex.Metadata) bool {
	if f.Year > 0 && item.Year != f.Year {
		return false
	}
	if f.Genre != "" && !hasTag(item.Genre, f.Genre) {
		return false
	}
	if f.Actor != "" && !hasTag(item.Role, f.Actor) {
		return false
	}
	if f.Director != "" && !hasTag(item.Director, f.Director) {
		return false
	}
	if f.Studio != "" && !strings.EqualFold(item.Studio, f.Studio) {
		return false
	}
	if f.Network != "" && !strings.EqualFold(item.Network, f.Network) {
		return false
	}
	if f.Watched != nil && item.Watched() != *f.Watched {
		return false
	}
	if f.MinRating > 0 && item.Rating < f.MinRating {
		return false
	}
	if f.Resolution != "" {
		found := false
		for _, media := range item.Media {
			if strings.EqualFold(media.VideoResolution, f.Resolution) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func hasTag(tags []plex.Tag, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag.Tag, want) {
			return true
		}
	}
	return false
}
