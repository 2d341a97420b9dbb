package wherewolf

import "github.com/paulmach/orb"

// Contains reports whether p lies in f. The bbox check is inclusive on both
// axes. A Polygon contains p when its outer ring does and none of its holes
// do; a MultiPolygon when any constituent polygon does.
//
// Comparisons are exact IEEE comparisons. Points on a ring edge, and rings
// that self-intersect or repeat vertices, get whatever the parity rule
// yields; no special handling is applied.
func Contains(p orb.Point, f *Feature) bool {
	if f == nil || f.Geometry == nil || !inBound(p, f.BBox) {
		return false
	}
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		return polygonContains(p, g)
	case orb.MultiPolygon:
		for _, poly := range g {
			if polygonContains(p, poly) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p orb.Point, poly orb.Polygon) bool {
	if len(poly) == 0 || !RingContains(p, poly[0]) {
		return false
	}
	for _, hole := range poly[1:] {
		if RingContains(p, hole) {
			return false
		}
	}
	return true
}

// RingContains is the odd-even (PNPOLY) ray casting test. The ring is
// implicitly closed; a repeated closing vertex adds a zero-length edge that
// never crosses.
func RingContains(p orb.Point, ring orb.Ring) bool {
	x, y := p[0], p[1]
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func inBound(p orb.Point, b orb.Bound) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1]
}
