package topology

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature materializes the object named key. A GeometryCollection yields one
// feature per member geometry; any other object yields a single feature.
func (t *Topology) Feature(key string) (*geojson.FeatureCollection, error) {
	o, ok := t.Objects[key]
	if !ok || o == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObject, key)
	}
	fc := geojson.NewFeatureCollection()
	members := []*Object{o}
	if o.Type == "GeometryCollection" {
		members = o.Geometries
	}
	for i, m := range members {
		f, err := t.feature(m)
		if err != nil {
			return nil, fmt.Errorf("object %q geometry %d: %w", key, i, err)
		}
		fc.Append(f)
	}
	return fc, nil
}

func (t *Topology) feature(o *Object) (*geojson.Feature, error) {
	if o == nil {
		o = &Object{}
	}
	g, err := t.geometry(o)
	if err != nil {
		return nil, err
	}
	f := geojson.NewFeature(g)
	f.ID = o.ID
	if o.Properties != nil {
		f.Properties = geojson.Properties(o.Properties)
	}
	if len(o.BBox) > 0 {
		f.BBox = geojson.BBox(o.BBox)
	}
	return f, nil
}

func (t *Topology) geometry(o *Object) (orb.Geometry, error) {
	switch o.Type {
	case "":
		return nil, nil
	case "Point":
		var c []float64
		if err := unmarshal(o.Coordinates, &c); err != nil {
			return nil, err
		}
		return t.point(c)
	case "MultiPoint":
		var cs [][]float64
		if err := unmarshal(o.Coordinates, &cs); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPoint, 0, len(cs))
		for _, c := range cs {
			p, err := t.point(c)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "LineString":
		var arcs []int
		if err := unmarshal(o.Arcs, &arcs); err != nil {
			return nil, err
		}
		pts, err := t.line(arcs)
		return orb.LineString(pts), err
	case "MultiLineString":
		var arcs [][]int
		if err := unmarshal(o.Arcs, &arcs); err != nil {
			return nil, err
		}
		ml := make(orb.MultiLineString, 0, len(arcs))
		for _, a := range arcs {
			pts, err := t.line(a)
			if err != nil {
				return nil, err
			}
			ml = append(ml, pts)
		}
		return ml, nil
	case "Polygon":
		var arcs [][]int
		if err := unmarshal(o.Arcs, &arcs); err != nil {
			return nil, err
		}
		return t.polygon(arcs)
	case "MultiPolygon":
		var arcs [][][]int
		if err := unmarshal(o.Arcs, &arcs); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(arcs))
		for _, a := range arcs {
			p, err := t.polygon(a)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "GeometryCollection":
		c := make(orb.Collection, 0, len(o.Geometries))
		for _, m := range o.Geometries {
			if m == nil {
				continue
			}
			g, err := t.geometry(m)
			if err != nil {
				return nil, err
			}
			if g != nil {
				c = append(c, g)
			}
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", o.Type)
	}
}

func unmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse geometry: %w", err)
	}
	return nil
}

// point transforms a quantized position. Positions outside arcs are absolute,
// not delta encoded.
func (t *Topology) point(c []float64) (orb.Point, error) {
	if len(c) < 2 {
		return orb.Point{}, fmt.Errorf("position: want at least 2 numbers, got %d", len(c))
	}
	x, y := t.Transform.apply(c[0], c[1])
	return orb.Point{x, y}, nil
}

func (t *Topology) polygon(arcs [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(arcs))
	for _, a := range arcs {
		r, err := t.ring(a)
		if err != nil {
			return nil, err
		}
		poly = append(poly, r)
	}
	return poly, nil
}

// line stitches arcs end to end. Adjacent arcs share an endpoint, so the last
// point collected is dropped before each arc is appended. A negative index
// ^i means arc i reversed.
func (t *Topology) line(arcs []int) ([]orb.Point, error) {
	var pts []orb.Point
	for _, i := range arcs {
		idx, reverse := i, false
		if i < 0 {
			idx, reverse = ^i, true
		}
		if idx >= len(t.abs) {
			return nil, fmt.Errorf("arc index %d out of range (%d arcs)", i, len(t.abs))
		}
		if len(pts) > 0 {
			pts = pts[:len(pts)-1]
		}
		start := len(pts)
		for _, p := range t.abs[idx] {
			pts = append(pts, orb.Point{p[0], p[1]})
		}
		if reverse {
			seg := pts[start:]
			for l, r := 0, len(seg)-1; l < r; l, r = l+1, r-1 {
				seg[l], seg[r] = seg[r], seg[l]
			}
		}
	}
	// a line collapsed to one point is padded to two
	if len(pts) == 1 {
		pts = append(pts, pts[0])
	}
	return pts, nil
}

func (t *Topology) ring(arcs []int) (orb.Ring, error) {
	pts, err := t.line(arcs)
	if err != nil {
		return nil, err
	}
	for len(pts) > 0 && len(pts) < 4 {
		pts = append(pts, pts[0])
	}
	return orb.Ring(pts), nil
}
