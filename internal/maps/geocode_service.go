package maps

import (
	"context"
	"fmt"
	"sync"

	"googlemaps.github.io/maps"

	"trailquest/internal/types"
)

// Result types that make a better marker label than a street address, in
// order of preference.
var preferredTypes = []string{"natural_feature", "park", "point_of_interest", "locality"}

// GeocodeService labels coordinates using the Google Geocoding API.
type GeocodeService struct {
	client   *maps.Client
	language string

	mu    sync.Mutex
	cache map[string]string
}

// NewGeocodeService creates a new GeocodeService with the given API Key.
func NewGeocodeService(apiKey, language string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client, language: language, cache: make(map[string]string)}, nil
}

// Label reverse geocodes p. Results are cached per ~11 m grid cell.
func (s *GeocodeService) Label(ctx context.Context, p types.Point) (string, error) {
	key := fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lng)
	s.mu.Lock()
	if label, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return label, nil
	}
	s.mu.Unlock()

	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
		Language: s.language,
	})
	if err != nil {
		return "", fmt.Errorf("geocoding api error: %w", err)
	}
	label := pickLabel(results)
	if label == "" {
		return "", fmt.Errorf("no geocoding results for %s", p)
	}

	s.mu.Lock()
	s.cache[key] = label
	s.mu.Unlock()
	return label, nil
}

func pickLabel(results []maps.GeocodingResult) string {
	for _, want := range preferredTypes {
		for _, r := range results {
			for _, t := range r.Types {
				if t == want && r.FormattedAddress != "" {
					return r.FormattedAddress
				}
			}
		}
	}
	for _, r := range results {
		if r.FormattedAddress != "" {
			return r.FormattedAddress
		}
	}
	return ""
}
