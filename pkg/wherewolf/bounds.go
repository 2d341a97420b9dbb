package wherewolf

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Bounds is a search rectangle [[minLng, minLat], [maxLng, maxLat]]. It only
// scopes geocoding candidates; point queries ignore it.
type Bounds [2][2]float64

// Valid reports whether all corners are finite and min <= max on both axes.
func (b Bounds) Valid() bool {
	for _, c := range b {
		for _, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return b[0][0] <= b[1][0] && b[0][1] <= b[1][1]
}

// Contains is inclusive on both axes.
func (b Bounds) Contains(p orb.Point) bool {
	return p[0] >= b[0][0] && p[0] <= b[1][0] && p[1] >= b[0][1] && p[1] <= b[1][1]
}

func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b[0][0], b[0][1]},
		Max: orb.Point{b[1][0], b[1][1]},
	}
}

// SetBounds replaces the search bounds and bumps the bounds generation, which
// invalidates anything derived from the previous value.
func (s *Store) SetBounds(b Bounds) error {
	if !b.Valid() {
		return fmt.Errorf("%w: must be [[min lng,min lat],[max lng,max lat]], got %v", ErrInvalidBounds, b)
	}
	s.mu.Lock()
	s.bounds = &b
	s.boundsGen++
	s.mu.Unlock()
	return nil
}

// Bounds returns the current search bounds, or false when unset.
func (s *Store) Bounds() (Bounds, bool) {
	b, _, ok := s.BoundsSnapshot()
	return b, ok
}

// BoundsSnapshot returns the bounds together with their generation. The
// generation starts at zero and increments on every successful SetBounds.
func (s *Store) BoundsSnapshot() (Bounds, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bounds == nil {
		return Bounds{}, s.boundsGen, false
	}
	return *s.bounds, s.boundsGen, true
}

func (s *Store) BoundsGeneration() uint64 {
	_, gen, _ := s.BoundsSnapshot()
	return gen
}
