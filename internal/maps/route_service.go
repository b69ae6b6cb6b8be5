// README: Road distance between two free-text addresses via the Google Directions API.
package maps

import (
	"context"
	"fmt"
	"math"
	"strings"

	"googlemaps.github.io/maps"
)

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
// Extra client options (base URL, HTTP client) are mainly for tests.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// RoadDistanceKm returns the driving distance in whole kilometres, or nil when the
// provider finds no route between the two addresses.
func (s *RouteService) RoadDistanceKm(ctx context.Context, origin, destination string) (*int, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    "fr",
		Region:      "fr",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		if isNoRoute(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, nil
	}

	meters := 0
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
	}
	km := int(math.Round(float64(meters) / 1000))
	return &km, nil
}

// noRouteStatuses are the Directions statuses meaning "no route", as the client
// formats them ("maps: STATUS - message").
var noRouteStatuses = []string{"maps: ZERO_RESULTS -", "maps: NOT_FOUND -"}

func isNoRoute(err error) bool {
	msg := err.Error()
	for _, prefix := range noRouteStatuses {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
