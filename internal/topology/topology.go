// Package topology decodes TopoJSON documents and materializes their named
// objects as GeoJSON features.
package topology

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotTopology   = errors.New("not a topology")
	ErrUnknownObject = errors.New("unknown topology object")
)

// Transform maps quantized, delta-encoded positions back to coordinates.
type Transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

func (t *Transform) apply(x, y float64) (float64, float64) {
	if t == nil {
		return x, y
	}
	return x*t.Scale[0] + t.Translate[0], y*t.Scale[1] + t.Translate[1]
}

// Object is a geometry object. Arcs and Coordinates stay raw because their
// nesting depth depends on Type.
type Object struct {
	Type        string          `json:"type"`
	ID          any             `json:"id,omitempty"`
	Properties  map[string]any  `json:"properties,omitempty"`
	BBox        []float64       `json:"bbox,omitempty"`
	Arcs        json.RawMessage `json:"arcs,omitempty"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []*Object       `json:"geometries,omitempty"`
}

type Topology struct {
	Type      string             `json:"type"`
	BBox      []float64          `json:"bbox,omitempty"`
	Transform *Transform         `json:"transform,omitempty"`
	Objects   map[string]*Object `json:"objects"`
	Arcs      [][][]float64      `json:"arcs"`

	// arcs with the transform and delta encoding resolved
	abs [][][2]float64
}

// Decode parses a TopoJSON document and resolves its arcs.
func Decode(data []byte) (*Topology, error) {
	var t Topology
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	if t.Type != "Topology" {
		return nil, fmt.Errorf("%w: type %q", ErrNotTopology, t.Type)
	}
	if err := t.resolveArcs(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Topology) resolveArcs() error {
	t.abs = make([][][2]float64, len(t.Arcs))
	for i, arc := range t.Arcs {
		pts := make([][2]float64, len(arc))
		var x, y float64
		for j, p := range arc {
			if len(p) < 2 {
				return fmt.Errorf("arc %d position %d: want at least 2 numbers, got %d", i, j, len(p))
			}
			if t.Transform != nil {
				x, y = x+p[0], y+p[1]
				pts[j][0], pts[j][1] = t.Transform.apply(x, y)
			} else {
				pts[j] = [2]float64{p[0], p[1]}
			}
		}
		t.abs[i] = pts
	}
	return nil
}

// ObjectKeys returns the object names, sorted.
func (t *Topology) ObjectKeys() []string {
	keys := make([]string, 0, len(t.Objects))
	for k := range t.Objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
