// README: Address suggestions restricted to France via Google Places Autocomplete.
package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

// Suggestion is one selectable address.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client *maps.Client
}

// NewPlacesService creates a new PlacesService with the given API Key.
func NewPlacesService(apiKey string, opts ...maps.ClientOption) (*PlacesService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client}, nil
}

// Suggest returns address predictions for a partial input. Inputs shorter than
// three characters return no suggestions without calling the API.
func (s *PlacesService) Suggest(ctx context.Context, input string) ([]Suggestion, error) {
	input = strings.TrimSpace(input)
	if len([]rune(input)) < 3 {
		return []Suggestion{}, nil
	}

	resp, err := s.client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input:      input,
		Language:   "fr",
		Types:      maps.AutocompletePlaceTypeAddress,
		Components: map[maps.Component][]string{maps.ComponentCountry: {"fr"}},
	})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return []Suggestion{}, nil
		}
		return nil, fmt.Errorf("places autocomplete: %w", err)
	}

	out := make([]Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, Suggestion{PlaceID: p.PlaceID, Description: p.Description})
	}
	return out, nil
}
