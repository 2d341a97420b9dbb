package wherewolf

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// LatLng is the named-field form of a point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point reorders into (lng, lat).
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

// ValidatePoint rejects non-finite coordinates.
func ValidatePoint(p orb.Point) error {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: latitude/longitude must be finite, got %v", ErrInvalidPoint, p)
		}
	}
	return nil
}

// Find queries every layer. The result has a key for each registered layer;
// a nil value means no feature in that layer contains p.
func (s *Store) Find(p orb.Point) (map[string]*Feature, error) {
	if err := ValidatePoint(p); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Feature, len(s.layers))
	for name, fs := range s.layers {
		out[name] = firstMatch(p, fs)
	}
	return out, nil
}

// FindIn queries a single layer and returns the first feature, in insertion
// order, that contains p, or nil.
func (s *Store) FindIn(layer string, p orb.Point) (*Feature, error) {
	if err := ValidatePoint(p); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.layers[layer]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLayerNotFound, layer)
	}
	return firstMatch(p, fs), nil
}

func firstMatch(p orb.Point, fs []*Feature) *Feature {
	for _, f := range fs {
		if Contains(p, f) {
			return f
		}
	}
	return nil
}
