// Package h3mapper implements mapper.Interface with uber/h3-go.
package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/wherewolf/internal/mapper"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

// CellForPoint returns the cell containing p (lng, lat) at res.
func (m *Mapper) CellForPoint(p orb.Point, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p[1], Lng: p[0]}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %v: %w", p, err)
	}
	return c.String(), nil
}

// CellsForGeometry polyfills a Polygon or MultiPolygon. Cells come back
// sorted and unique.
func (m *Mapper) CellsForGeometry(g orb.Geometry, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	switch g := g.(type) {
	case orb.Polygon:
		return polyfill([]orb.Polygon{g}, res)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return nil, errors.New("empty multipolygon")
		}
		return polyfill(g, res)
	case nil:
		return nil, errors.New("nil geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type: %s", g.GeoJSONType())
	}
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// toLoop converts a ring to an h3.GeoLoop, dropping an explicit closing
// vertex.
func toLoop(r orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(r))
	for _, p := range r {
		loop = append(loop, h3.LatLng{Lat: p[1], Lng: p[0]})
	}
	if n := len(loop); n >= 2 && loop[0] == loop[n-1] {
		loop = loop[:n-1]
	}
	return loop
}

func polyfill(polys []orb.Polygon, res int) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for pi, p := range polys {
		if len(p) == 0 {
			return nil, fmt.Errorf("polygon %d is empty", pi)
		}
		outer := toLoop(p[0])
		if len(outer) < 3 {
			return nil, fmt.Errorf("polygon %d outer ring has < 3 distinct vertices", pi)
		}
		var holes []h3.GeoLoop
		for i, r := range p[1:] {
			h := toLoop(r)
			if len(h) < 3 {
				return nil, fmt.Errorf("polygon %d hole %d has < 3 distinct vertices", pi, i)
			}
			holes = append(holes, h)
		}

		cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer, Holes: holes}, res)
		if err != nil {
			return nil, fmt.Errorf("h3 polyfill: %w", err)
		}
		for _, c := range cells {
			s := c.String()
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}
