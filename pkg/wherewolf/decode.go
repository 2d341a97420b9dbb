package wherewolf

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DecodeInput parses a JSON document into an Input by its "type": a
// FeatureCollection, a Topology (needs dec), a single Feature, or an array
// whose first element is a Feature.
func DecodeInput(data []byte, dec TopologyDecoder) (Input, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidInput)
	}

	if data[0] == '[' {
		return decodeFeatureArray(data)
	}

	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("%w: parse json: %w", ErrInvalidInput, err)
	}

	switch hdr.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse feature collection: %w", ErrInvalidInput, err)
		}
		return FeatureCollection{Collection: fc}, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse feature: %w", ErrInvalidInput, err)
		}
		return FeatureList{f}, nil
	case "Topology":
		if dec == nil {
			return nil, fmt.Errorf("%w: topology documents need a topology decoder", ErrInvalidInput)
		}
		doc, err := dec.DecodeTopology(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse topology: %w", ErrInvalidInput, err)
		}
		return Topology{Doc: doc}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported document type %q", ErrInvalidInput, hdr.Type)
	}
}

func decodeFeatureArray(data []byte) (Input, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse feature array: %w", ErrInvalidInput, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty feature array", ErrInvalidInput)
	}
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw[0], &hdr); err != nil || hdr.Type != "Feature" {
		return nil, fmt.Errorf("%w: array must start with a Feature", ErrInvalidInput)
	}
	out := make(FeatureList, 0, len(raw))
	for i, r := range raw {
		f, err := geojson.UnmarshalFeature(r)
		if err != nil {
			return nil, fmt.Errorf("%w: parse feature %d: %w", ErrInvalidInput, i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParsePoint accepts [lng, lat] or {"lat": .., "lng": ..}. Anything else,
// including arrays of any other length, is ErrInvalidPoint.
func ParsePoint(raw []byte) (orb.Point, error) {
	raw = bytes.TrimSpace(raw)
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != 2 {
			return orb.Point{}, fmt.Errorf("%w: want 2 coordinates, got %d", ErrInvalidPoint, len(arr))
		}
		p := orb.Point{arr[0], arr[1]}
		return p, ValidatePoint(p)
	}

	var obj struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Lat == nil || obj.Lng == nil {
		return orb.Point{}, fmt.Errorf("%w: latitude/longitude required", ErrInvalidPoint)
	}
	p := LatLng{Lat: *obj.Lat, Lng: *obj.Lng}.Point()
	return p, ValidatePoint(p)
}

// ParseBounds accepts exactly [[minLng,minLat],[maxLng,maxLat]].
func ParseBounds(raw []byte) (Bounds, error) {
	var rect [][]float64
	if err := json.Unmarshal(bytes.TrimSpace(raw), &rect); err != nil {
		return Bounds{}, fmt.Errorf("%w: parse json: %w", ErrInvalidBounds, err)
	}
	if len(rect) != 2 || len(rect[0]) != 2 || len(rect[1]) != 2 {
		return Bounds{}, fmt.Errorf("%w: must be [[min lng,min lat],[max lng,max lat]]", ErrInvalidBounds)
	}
	b := Bounds{{rect[0][0], rect[0][1]}, {rect[1][0], rect[1][1]}}
	if !b.Valid() {
		return Bounds{}, fmt.Errorf("%w: min corner must not exceed max corner", ErrInvalidBounds)
	}
	return b, nil
}
