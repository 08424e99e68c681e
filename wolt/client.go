package wolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/m3rciful/woltwatch/core/httpx"
	"github.com/m3rciful/woltwatch/core/logger"
)

const (
	defaultSearchBaseURL = "https://restaurant-api.wolt.com"
	defaultVenueBaseURL  = "https://consumer-api.wolt.com"

	searchPath      = "/v1/pages/search"
	venueDynamicFmt = "/order-xp/web/v1/venue/slug/%s/dynamic"

	// The public endpoints reject requests without a browser-like agent.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko)"
)

// ErrMalformedResponse signals that the Wolt API returned data the client
// cannot interpret, or a venue carries an unusable track identifier.
var ErrMalformedResponse = errors.New("wolt: malformed response")

// Options configure a Client.
type Options struct {
	Lat float64
	Lon float64
	// SearchBaseURL and VenueBaseURL override production endpoints (tests).
	SearchBaseURL string
	VenueBaseURL  string
	HTTPClient    *http.Client
	UserAgent     string
}

// Client queries the Wolt directory: search by free text and per-venue
// online/delivery status.
type Client struct {
	lat, lon  float64
	searchURL string
	venueURL  string
	http      *http.Client
	userAgent string
}

// NewClient builds a directory client; zero-valued options select defaults.
func NewClient(opts Options) *Client {
	c := &Client{
		lat:       opts.Lat,
		lon:       opts.Lon,
		searchURL: opts.SearchBaseURL,
		venueURL:  opts.VenueBaseURL,
		http:      opts.HTTPClient,
		userAgent: opts.UserAgent,
	}
	if c.searchURL == "" {
		c.searchURL = defaultSearchBaseURL
	}
	if c.venueURL == "" {
		c.venueURL = defaultVenueBaseURL
	}
	if c.http == nil {
		c.http = httpx.NewClient()
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	return c
}

type searchRequest struct {
	Q      string  `json:"q"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Target *string `json:"target"`
}

type searchResponse struct {
	Sections []struct {
		Items []searchItem `json:"items"`
	} `json:"sections"`
}

type searchItem struct {
	Title   string `json:"title"`
	TrackID string `json:"track_id"`
	Venue   struct {
		Rating *struct {
			Score float64 `json:"score"`
		} `json:"rating"`
		ShortDescription string `json:"short_description"`
	} `json:"venue"`
}

type venueDynamicResponse struct {
	Venue struct {
		Online             bool `json:"online"`
		DeliveryOpenStatus struct {
			IsOpen bool `json:"is_open"`
		} `json:"delivery_open_status"`
	} `json:"venue"`
	VenueRaw struct {
		DeliverySpecs struct {
			DeliveryEnabled bool `json:"delivery_enabled"`
		} `json:"delivery_specs"`
	} `json:"venue_raw"`
}

// Search returns venues matching the free-text query, in API order.
// An empty result is not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Venue, error) {
	body, err := json.Marshal(searchRequest{Q: query, Lat: c.lat, Lon: c.lon})
	if err != nil {
		return nil, fmt.Errorf("wolt search: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wolt search: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	var parsed searchResponse
	if err := c.do(req, &parsed); err != nil {
		logger.WOLT.Error("search failed",
			slog.String("event", "wolt.search"),
			slog.String("query", logger.SanitizeLimit(query, 128)),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("wolt search: %w", err)
	}

	var venues []Venue
	if len(parsed.Sections) > 0 {
		for _, item := range parsed.Sections[0].Items {
			v := Venue{
				Title:       item.Title,
				Description: item.Venue.ShortDescription,
				RawID:       item.TrackID,
			}
			if item.Venue.Rating != nil {
				score := item.Venue.Rating.Score
				v.Rating = &score
			}
			venues = append(venues, v)
		}
	}

	logger.WOLT.Debug("search done",
		slog.String("event", "wolt.search"),
		slog.String("status", "ok"),
		slog.String("query", logger.SanitizeLimit(query, 128)),
		slog.Int("results", len(venues)),
		slog.Duration("duration", logger.Took(start)),
	)
	return venues, nil
}

// IsOnline reports whether the venue is online, open for delivery, and has
// delivery enabled.
func (c *Client) IsOnline(ctx context.Context, venue Venue) (bool, error) {
	slug, ok := venue.Slug()
	if !ok {
		return false, fmt.Errorf("%w: track id %q", ErrMalformedResponse, venue.RawID)
	}

	u := c.venueURL + fmt.Sprintf(venueDynamicFmt, url.PathEscape(slug))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("wolt status: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("lat", strconv.FormatFloat(c.lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.lon, 'f', -1, 64))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	var parsed venueDynamicResponse
	if err := c.do(req, &parsed); err != nil {
		logger.WOLT.Error("status check failed",
			slog.String("event", "wolt.status"),
			slog.String("slug", slug),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return false, fmt.Errorf("wolt status: %w", err)
	}

	online := parsed.Venue.Online &&
		parsed.Venue.DeliveryOpenStatus.IsOpen &&
		parsed.VenueRaw.DeliverySpecs.DeliveryEnabled

	logger.WOLT.Debug("status check done",
		slog.String("event", "wolt.status"),
		slog.String("status", "ok"),
		slog.String("slug", slug),
		slog.Bool("online", online),
		slog.Duration("duration", logger.Took(start)),
	)
	return online, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
