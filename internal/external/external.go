// Package external wraps the third-party data providers the router can
// source from. Every call is bounded by the request context plus a client
// timeout and reports failure through the error return; callers downgrade to
// model knowledge rather than propagate.
package external

import (
	"context"
	"encoding/json"
)

// Fetcher retrieves a structured payload for a location. Implementations
// exist for weather and attractions; the router treats both uniformly.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (json.RawMessage, error)
}

// Place is a geocoded location.
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Geocoder resolves free-text location phrasing to a stable place, so cache
// keys and radius queries do not depend on how the user spelled a city.
type Geocoder interface {
	ResolveTourismCenter(ctx context.Context, locationText string) (Place, error)
}
