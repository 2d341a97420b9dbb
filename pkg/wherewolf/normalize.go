package wherewolf

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Normalizer turns an Input into canonical features. The converter is only
// needed for Topology inputs and may be nil otherwise.
type Normalizer struct {
	conv TopologyConverter
}

func NewNormalizer(conv TopologyConverter) *Normalizer {
	return &Normalizer{conv: conv}
}

// Normalize returns a new ordered feature sequence for in. objectKey selects
// the topology object and is ignored for the other variants. Every feature
// carries a bbox: a supplied one is trusted, a missing one is derived from
// the outer rings.
func (n *Normalizer) Normalize(in Input, objectKey string) ([]*Feature, error) {
	var raw []*geojson.Feature
	switch v := in.(type) {
	case FeatureCollection:
		if v.Collection == nil {
			return nil, fmt.Errorf("%w: nil feature collection", ErrInvalidInput)
		}
		raw = v.Collection.Features
	case FeatureList:
		if len(v) == 0 || v[0] == nil {
			return nil, fmt.Errorf("%w: feature list must start with a feature", ErrInvalidInput)
		}
		raw = v
	case Topology:
		fs, err := n.convert(v, objectKey)
		if err != nil {
			return nil, err
		}
		raw = fs
	default:
		return nil, fmt.Errorf("%w: no valid GeoJSON or TopoJSON supplied", ErrInvalidInput)
	}

	out := make([]*Feature, 0, len(raw))
	for i, gf := range raw {
		if gf == nil {
			return nil, fmt.Errorf("%w: feature %d is nil", ErrInvalidInput, i)
		}
		out = append(out, normalizeFeature(gf))
	}
	return out, nil
}

func (n *Normalizer) convert(t Topology, key string) ([]*geojson.Feature, error) {
	if n.conv == nil {
		return nil, fmt.Errorf("%w: topology input needs a topology converter", ErrInvalidInput)
	}
	if t.Doc == nil {
		return nil, fmt.Errorf("%w: nil topology", ErrInvalidInput)
	}
	keys := t.Doc.ObjectKeys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: topology has no objects", ErrInvalidInput)
	}

	if key == "" {
		if len(keys) > 1 {
			sorted := slices.Sorted(slices.Values(keys))
			return nil, fmt.Errorf("%w: topology has multiple objects %q; specify an object key or add all", ErrInvalidInput, sorted)
		}
		key = keys[0]
	} else if !slices.Contains(keys, key) {
		return nil, fmt.Errorf("%w: object %q not found in topology", ErrInvalidInput, key)
	}

	fc, err := n.conv.Feature(t.Doc, key)
	if err != nil {
		return nil, fmt.Errorf("convert topology object %q: %w", key, err)
	}
	if fc == nil {
		return nil, nil
	}
	return fc.Features, nil
}

func normalizeFeature(gf *geojson.Feature) *Feature {
	f := &Feature{
		ID:         gf.ID,
		Properties: maps.Clone(gf.Properties),
	}
	if gf.Geometry != nil {
		f.Geometry = orb.Clone(gf.Geometry)
	}
	if b, ok := suppliedBound(gf.BBox); ok {
		f.BBox = b
	} else {
		f.BBox = OuterBound(f.Geometry)
	}
	return f
}

// suppliedBound reads a GeoJSON bbox of 4 (2D) or 6 (3D) numbers.
func suppliedBound(bb geojson.BBox) (orb.Bound, bool) {
	if len(bb) < 4 || len(bb)%2 != 0 {
		return orb.Bound{}, false
	}
	mid := len(bb) / 2
	return orb.Bound{
		Min: orb.Point{bb[0], bb[1]},
		Max: orb.Point{bb[mid], bb[mid+1]},
	}, true
}

// OuterBound is the per-axis min/max over the outer ring vertices of every
// constituent polygon. Holes never affect it. Geometries without outer ring
// vertices get an inverted bound that contains nothing.
func OuterBound(g orb.Geometry) orb.Bound {
	b := orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}
	extend := func(r orb.Ring) {
		for _, p := range r {
			b.Min[0] = math.Min(b.Min[0], p[0])
			b.Min[1] = math.Min(b.Min[1], p[1])
			b.Max[0] = math.Max(b.Max[0], p[0])
			b.Max[1] = math.Max(b.Max[1], p[1])
		}
	}
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			extend(g[0])
		}
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) > 0 {
				extend(p[0])
			}
		}
	}
	return b
}
