package wolt

import (
	"fmt"
	"strings"
	"testing"
)

func makeVenues(n int) []Venue {
	venues := make([]Venue, n)
	for i := range venues {
		venues[i] = Venue{
			Title:       fmt.Sprintf("Venue %d", i+1),
			Description: fmt.Sprintf("desc %d", i+1),
			RawID:       fmt.Sprintf("venue-%d", i+1),
		}
	}
	return venues
}

func TestPaginateCoversListExactlyOnce(t *testing.T) {
	for _, total := range []int{1, 9, 10, 11, 25, 30} {
		for _, pageSize := range []int{1, 3, 10} {
			venues := makeVenues(total)
			var rebuilt []Venue
			hasMore := true
			for page := 0; hasMore; page++ {
				var slice []Venue
				slice, hasMore = Paginate(venues, page, pageSize)
				rebuilt = append(rebuilt, slice...)
			}
			if len(rebuilt) != total {
				t.Fatalf("total=%d pageSize=%d: rebuilt %d items", total, pageSize, len(rebuilt))
			}
			for i := range rebuilt {
				if rebuilt[i].RawID != venues[i].RawID {
					t.Fatalf("total=%d pageSize=%d: item %d out of order", total, pageSize, i)
				}
			}
		}
	}
}

func TestPaginateOutOfRange(t *testing.T) {
	venues := makeVenues(5)
	if slice, hasMore := Paginate(venues, 3, 10); slice != nil || hasMore {
		t.Fatalf("expected empty page, got %v hasMore=%v", slice, hasMore)
	}
	if slice, hasMore := Paginate(venues, -1, 10); slice != nil || hasMore {
		t.Fatalf("expected empty page for negative page, got %v hasMore=%v", slice, hasMore)
	}
}

func TestBuildPromptFirstPage(t *testing.T) {
	venues := makeVenues(15)
	prompt := BuildPrompt(venues, 0, 10)

	if !strings.HasPrefix(prompt, "Select venue:\n") {
		t.Fatalf("missing header: %q", prompt)
	}
	if !strings.Contains(prompt, "1. Venue 1 - no rating - desc 1\n") {
		t.Fatalf("missing first item: %q", prompt)
	}
	if !strings.Contains(prompt, "10. Venue 10 - no rating - desc 10\n") {
		t.Fatalf("missing last item of page: %q", prompt)
	}
	if strings.Contains(prompt, "11. ") {
		t.Fatalf("item of next page leaked: %q", prompt)
	}
	if !strings.Contains(prompt, `reply "next"`) {
		t.Fatalf("missing next hint: %q", prompt)
	}
}

func TestBuildPromptSecondPageAbsoluteIndexing(t *testing.T) {
	venues := makeVenues(25)
	prompt := BuildPrompt(venues, 1, 10)

	if strings.HasPrefix(prompt, "Select venue:") {
		t.Fatalf("header must be omitted after page 0: %q", prompt)
	}
	if !strings.HasPrefix(prompt, "11. Venue 11") {
		t.Fatalf("expected absolute index 11 first: %q", prompt)
	}
	if !strings.Contains(prompt, "20. Venue 20") {
		t.Fatalf("expected absolute index 20: %q", prompt)
	}
	if !strings.Contains(prompt, `reply "next"`) {
		t.Fatalf("page 1 of 25 should still hint: %q", prompt)
	}
}

func TestBuildPromptLastPageHasNoHint(t *testing.T) {
	venues := makeVenues(15)
	prompt := BuildPrompt(venues, 1, 10)

	if !strings.HasPrefix(prompt, "11. Venue 11") {
		t.Fatalf("expected items 11-15: %q", prompt)
	}
	if !strings.Contains(prompt, "15. Venue 15") {
		t.Fatalf("expected item 15: %q", prompt)
	}
	if strings.Contains(prompt, "next") {
		t.Fatalf("last page must not hint: %q", prompt)
	}
}

func TestBuildPromptRatingAndTrimming(t *testing.T) {
	rating := 9.2
	venues := []Venue{
		{Title: "  Falafel Gina ", Description: " Best in town  ", Rating: &rating, RawID: "venue-gina"},
		{Title: "Hummus Place", Description: "Classic", RawID: "venue-hummus"},
	}
	prompt := BuildPrompt(venues, 0, 10)

	if !strings.Contains(prompt, "1. Falafel Gina - 9.2 - Best in town\n") {
		t.Fatalf("rated venue rendered wrong: %q", prompt)
	}
	if !strings.Contains(prompt, "2. Hummus Place - no rating - Classic\n") {
		t.Fatalf("unrated venue rendered wrong: %q", prompt)
	}
}

func TestVenueSlug(t *testing.T) {
	v := Venue{RawID: "venue-falafel-gina"}
	slug, ok := v.Slug()
	if !ok || slug != "falafel-gina" {
		t.Fatalf("Slug = %q ok=%v", slug, ok)
	}
	if _, ok := (Venue{RawID: "restaurant-x"}).Slug(); ok {
		t.Fatal("expected malformed track id to be rejected")
	}
	if _, ok := (Venue{}).Slug(); ok {
		t.Fatal("expected empty track id to be rejected")
	}
}
