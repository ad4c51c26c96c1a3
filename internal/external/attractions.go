package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGeoapifyBaseURL = "https://api.geoapify.com/v2"

// tourismCategories is the Geoapify category filter for sightseeing places.
var tourismCategories = strings.Join([]string{
	"tourism",
	"tourism.information",
	"tourism.attraction",
	"tourism.attraction.artwork",
	"tourism.attraction.viewpoint",
	"tourism.sights",
	"tourism.sights.place_of_worship",
	"tourism.sights.castle",
	"tourism.sights.archaeological_site",
	"tourism.sights.memorial.monument",
}, ",")

const (
	attractionsRadiusMeters = 10000
	attractionsLimit        = 5
)

// AttractionsClient fetches popular sights near a location via Geoapify,
// geocoding the free-text location first.
type AttractionsClient struct {
	apiKey   string
	baseURL  string
	geocoder Geocoder
	client   *http.Client
}

// NewAttractionsClient builds a client over the given geocoder.
func NewAttractionsClient(apiKey, baseURL string, geocoder Geocoder, timeout time.Duration) *AttractionsClient {
	if baseURL == "" {
		baseURL = defaultGeoapifyBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AttractionsClient{
		apiKey:   apiKey,
		baseURL:  baseURL,
		geocoder: geocoder,
		client:   &http.Client{Timeout: timeout},
	}
}

// AttractionsPayload is the cached shape handed to prompt construction.
type AttractionsPayload struct {
	Location    string       `json:"location"`
	Attractions []Attraction `json:"attractions"`
}

// Attraction is one place returned by the provider.
type Attraction struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories,omitempty"`
}

// Fetch geocodes the location and returns nearby attractions by popularity.
func (c *AttractionsClient) Fetch(ctx context.Context, location string) (json.RawMessage, error) {
	place, err := c.geocoder.ResolveTourismCenter(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve location: %w", err)
	}

	params := url.Values{}
	params.Set("categories", tourismCategories)
	params.Set("filter", fmt.Sprintf("circle:%f,%f,%d", place.Lon, place.Lat, attractionsRadiusMeters))
	params.Set("limit", fmt.Sprintf("%d", attractionsLimit))
	params.Set("sort", "popularity")
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build attractions request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attractions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attractions api status %d", resp.StatusCode)
	}

	var body struct {
		Features []struct {
			Properties struct {
				Name       string   `json:"name"`
				Categories []string `json:"categories"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode attractions response: %w", err)
	}

	payload := AttractionsPayload{Location: place.Name}
	for _, feature := range body.Features {
		name := feature.Properties.Name
		if name == "" {
			continue
		}
		payload.Attractions = append(payload.Attractions, Attraction{
			Name:       name,
			Categories: feature.Properties.Categories,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal attractions payload: %w", err)
	}
	return raw, nil
}
