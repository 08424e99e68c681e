// Package wolt talks to the Wolt consumer APIs: venue search and venue
// status checks, plus rendering of paginated venue prompts.
package wolt

import (
	"regexp"
	"strconv"
)

// Venue is a delivery establishment returned by search. It is never mutated
// after retrieval; RawID carries the opaque track identifier the status
// endpoint slug is extracted from.
type Venue struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Rating      *float64 `json:"rating,omitempty"`
	RawID       string   `json:"raw_id"`
}

var trackIDRe = regexp.MustCompile(`^venue-(.+)$`)

// Slug extracts the venue slug from the raw track identifier.
// The second return value is false when the identifier is malformed.
func (v Venue) Slug() (string, bool) {
	m := trackIDRe.FindStringSubmatch(v.RawID)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// RatingText renders the rating score, falling back to "no rating" when the
// venue has none.
func (v Venue) RatingText() string {
	if v.Rating == nil {
		return "no rating"
	}
	return strconv.FormatFloat(*v.Rating, 'f', -1, 64)
}
