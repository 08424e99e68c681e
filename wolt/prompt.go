package wolt

import (
	"fmt"
	"strings"
)

const (
	promptHeader   = "Select venue:\n"
	nextPageHint   = "\nIf you can't find your venue here please reply \"next\""
	// DefaultPageSize bounds a single prompt page.
	DefaultPageSize = 10
)

// Paginate slices venues into the requested 0-indexed page and reports
// whether further pages exist. Out-of-range pages yield an empty slice.
func Paginate(venues []Venue, pageNum, pageSize int) ([]Venue, bool) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	start := pageNum * pageSize
	if pageNum < 0 || start >= len(venues) {
		return nil, false
	}
	end := start + pageSize
	if end > len(venues) {
		end = len(venues)
	}
	return venues[start:end], start+pageSize < len(venues)
}

// BuildPrompt renders one page of the venue list. Item numbering is the
// 1-based absolute position in the full list so it stays continuous across
// pages; the "Select venue:" header appears on the first page only, and a
// hint to reply "next" is appended while more pages remain.
func BuildPrompt(venues []Venue, pageNum, pageSize int) string {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page, hasMore := Paginate(venues, pageNum, pageSize)

	var b strings.Builder
	if pageNum == 0 {
		b.WriteString(promptHeader)
	}
	for i, v := range page {
		index := pageNum*pageSize + i + 1
		fmt.Fprintf(&b, "%d. %s - %s - %s\n",
			index,
			strings.TrimSpace(v.Title),
			v.RatingText(),
			strings.TrimSpace(v.Description),
		)
	}
	if hasMore {
		b.WriteString(nextPageHint)
	}
	return b.String()
}
