// Package wherewolf answers "which named region contains this point?" against
// in-memory layers of Polygon and MultiPolygon features.
//
// Coordinates are planar (longitude, latitude). Results near the antimeridian
// and the poles are not spherically correct.
package wherewolf

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is the canonical, store-owned form of a GeoJSON feature.
// Geometry is an orb.Polygon or orb.MultiPolygon; any other geometry, or nil,
// never contains a point. BBox is either caller supplied or derived from the
// outer rings.
type Feature struct {
	ID         any
	Geometry   orb.Geometry
	Properties geojson.Properties
	BBox       orb.Bound
}

// Result returns the whole feature as GeoJSON when whole is set, otherwise
// only its properties. A nil feature yields nil (no match).
func (f *Feature) Result(whole bool) any {
	if f == nil {
		return nil
	}
	if whole {
		return f.GeoJSON()
	}
	return f.Properties
}

// GeoJSON renders the feature back into an orb GeoJSON feature.
func (f *Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.ID
	if f.Properties != nil {
		gf.Properties = f.Properties
	}
	// features without outer rings carry an infinite bound, which JSON cannot hold
	if f.BBox.Min[0] <= f.BBox.Max[0] && f.BBox.Min[1] <= f.BBox.Max[1] {
		gf.BBox = geojson.BBox{f.BBox.Min[0], f.BBox.Min[1], f.BBox.Max[0], f.BBox.Max[1]}
	}
	return gf
}
