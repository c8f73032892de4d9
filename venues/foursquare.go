package venues

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/venuebot/core/logger"
	"log/slog"
)

const (
	defaultBaseURL = "https://api.foursquare.com/v2"
	// apiVersion pins the v2 API behaviour to a known date.
	apiVersion = "20180323"
)

// Query describes a single venue search request.
type Query struct {
	Lat          float64
	Lng          float64
	CategoryIDs  []string
	RadiusMeters int
	Intent       string
	Limit        int
}

// Searcher is implemented by venue search providers.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Venue, error)
}

// ClientOptions configures the Foursquare client.
type ClientOptions struct {
	ClientID     string
	ClientSecret string
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
	// HTTPClient overrides the transport; a 10s-timeout client is used when nil.
	HTTPClient *http.Client
}

// Client calls the Foursquare v2 venues/search endpoint.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
}

// NewClient constructs a Foursquare search client.
func NewClient(opts ClientOptions) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		baseURL:      base,
		http:         httpClient,
	}
}

type searchResponse struct {
	Meta struct {
		Code        int    `json:"code"`
		ErrorType   string `json:"errorType"`
		ErrorDetail string `json:"errorDetail"`
	} `json:"meta"`
	Response struct {
		Venues []apiVenue `json:"venues"`
	} `json:"response"`
}

type apiVenue struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Location struct {
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
		Address string  `json:"address"`
	} `json:"location"`
}

// Search performs a venues/search call and returns the provider's ordered list.
func (c *Client) Search(ctx context.Context, q Query) ([]Venue, error) {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)
	params.Set("v", apiVersion)
	params.Set("ll", formatLL(q.Lat, q.Lng))
	params.Set("categoryId", strings.Join(q.CategoryIDs, ","))
	params.Set("radius", strconv.Itoa(q.RadiusMeters))
	params.Set("intent", q.Intent)
	params.Set("limit", strconv.Itoa(q.Limit))

	endpoint := c.baseURL + "/venues/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("foursquare: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn(ctx, "venues.search", "search.request",
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("foursquare: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("foursquare: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "venues.search", "search.request",
			slog.String("status", "fail"),
			slog.Int("http_code", resp.StatusCode),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, fmt.Errorf("foursquare: unexpected status %s", resp.Status)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("foursquare: decode response: %w", err)
	}
	if parsed.Meta.Code != 0 && parsed.Meta.Code != http.StatusOK {
		return nil, fmt.Errorf("foursquare: api error %d (%s): %s",
			parsed.Meta.Code, parsed.Meta.ErrorType, parsed.Meta.ErrorDetail)
	}

	out := make([]Venue, 0, len(parsed.Response.Venues))
	for _, v := range parsed.Response.Venues {
		out = append(out, Venue{
			ID:   v.ID,
			Name: v.Name,
			URL:  v.URL,
			Location: Location{
				Lat:     v.Location.Lat,
				Lng:     v.Location.Lng,
				Address: v.Location.Address,
			},
		})
	}
	logger.Debug(ctx, "venues.search", "search.request",
		slog.String("status", "ok"),
		slog.Int("count", len(out)),
		slog.Duration("duration", logger.Took(start)),
	)
	return out, nil
}

func formatLL(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
