package topology

import (
	"errors"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

const squares = `{
  "type": "Topology",
  "arcs": [
    [[0,0],[10,0],[10,10]],
    [[10,10],[0,10],[0,0]],
    [[4,4],[6,4],[6,6],[4,6],[4,4]],
    [[20,20],[22,20],[22,22],[20,22],[20,20]]
  ],
  "objects": {
    "holed": {"type":"Polygon","id":"h","properties":{"name":"holed"},"arcs":[[0,1],[2]]},
    "reversed": {"type":"Polygon","arcs":[[-2,-1]]},
    "regions": {"type":"GeometryCollection","geometries":[
      {"type":"Polygon","properties":{"name":"big"},"arcs":[[0,1]]},
      {"type":"MultiPolygon","properties":{"name":"far"},"arcs":[[[3]]]},
      {"type":null}
    ]}
  }
}`

func mustDecode(t *testing.T, s string) *Topology {
	t.Helper()
	topo, err := Decode([]byte(s))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return topo
}

func TestObjectKeysSorted(t *testing.T) {
	topo := mustDecode(t, squares)
	want := []string{"holed", "regions", "reversed"}
	if got := topo.ObjectKeys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys=%v want %v", got, want)
	}
}

func TestArcStitching(t *testing.T) {
	topo := mustDecode(t, squares)

	fc, err := topo.Feature("holed")
	if err != nil {
		t.Fatalf("Feature: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features=%d want 1", len(fc.Features))
	}
	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	if !ok || len(poly) != 2 {
		t.Fatalf("geometry=%#v", fc.Features[0].Geometry)
	}
	wantOuter := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	if !reflect.DeepEqual(poly[0], wantOuter) {
		t.Fatalf("outer=%v want %v", poly[0], wantOuter)
	}
	if fc.Features[0].ID != "h" || fc.Features[0].Properties["name"] != "holed" {
		t.Fatalf("id=%v props=%v", fc.Features[0].ID, fc.Features[0].Properties)
	}

	fc, err = topo.Feature("reversed")
	if err != nil {
		t.Fatalf("Feature: %v", err)
	}
	rev := fc.Features[0].Geometry.(orb.Polygon)[0]
	wantRev := orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
	if !reflect.DeepEqual(rev, wantRev) {
		t.Fatalf("reversed=%v want %v", rev, wantRev)
	}
	if fc.Features[0].Properties == nil || len(fc.Features[0].Properties) != 0 {
		t.Fatalf("properties must default to empty, got %v", fc.Features[0].Properties)
	}
}

func TestGeometryCollectionYieldsFeatures(t *testing.T) {
	topo := mustDecode(t, squares)
	fc, err := topo.Feature("regions")
	if err != nil {
		t.Fatalf("Feature: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("features=%d want 3", len(fc.Features))
	}
	if _, ok := fc.Features[1].Geometry.(orb.MultiPolygon); !ok {
		t.Fatalf("second geometry=%T want MultiPolygon", fc.Features[1].Geometry)
	}
	if fc.Features[2].Geometry != nil {
		t.Fatalf("null geometry decoded as %T", fc.Features[2].Geometry)
	}
}

func TestQuantizedArcs(t *testing.T) {
	topo := mustDecode(t, `{
	  "type":"Topology",
	  "transform":{"scale":[0.5,0.5],"translate":[100,50]},
	  "arcs":[[[0,0],[20,0],[0,20],[-20,0],[0,-20]]],
	  "objects":{
	    "sq":{"type":"Polygon","arcs":[[0]]},
	    "pt":{"type":"Point","coordinates":[4,6]}
	  }
	}`)
	fc, err := topo.Feature("sq")
	if err != nil {
		t.Fatalf("Feature: %v", err)
	}
	want := orb.Ring{{100, 50}, {110, 50}, {110, 60}, {100, 60}, {100, 50}}
	if got := fc.Features[0].Geometry.(orb.Polygon)[0]; !reflect.DeepEqual(got, want) {
		t.Fatalf("ring=%v want %v", got, want)
	}

	fc, err = topo.Feature("pt")
	if err != nil {
		t.Fatalf("Feature: %v", err)
	}
	if got := fc.Features[0].Geometry; got != (orb.Point{102, 53}) {
		t.Fatalf("point=%v want [102 53]", got)
	}
}

func TestDegenerateRingsArePadded(t *testing.T) {
	topo := mustDecode(t, `{"type":"Topology","arcs":[[[1,1]]],
	  "objects":{"p":{"type":"Polygon","arcs":[[0]]},"l":{"type":"LineString","arcs":[0]}}}`)
	fc, _ := topo.Feature("p")
	if n := len(fc.Features[0].Geometry.(orb.Polygon)[0]); n != 4 {
		t.Fatalf("ring length=%d want 4", n)
	}
	fc, _ = topo.Feature("l")
	if n := len(fc.Features[0].Geometry.(orb.LineString)); n != 2 {
		t.Fatalf("line length=%d want 2", n)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"FeatureCollection"}`)); !errors.Is(err, ErrNotTopology) {
		t.Fatalf("err=%v want ErrNotTopology", err)
	}
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Decode([]byte(`{"type":"Topology","arcs":[[[1]]],"objects":{}}`)); err == nil {
		t.Fatalf("expected short position error")
	}

	topo := mustDecode(t, `{"type":"Topology","arcs":[],"objects":{"x":{"type":"Polygon","arcs":[[5]]},"y":{"type":"Circle"}}}`)
	if _, err := topo.Feature("x"); err == nil {
		t.Fatalf("expected arc range error")
	}
	if _, err := topo.Feature("y"); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if _, err := topo.Feature("z"); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("err=%v want ErrUnknownObject", err)
	}
}

func TestConverterWithStore(t *testing.T) {
	conv := Converter{}
	in, err := wherewolf.DecodeInput([]byte(squares), conv)
	if err != nil {
		t.Fatalf("DecodeInput: %v", err)
	}
	topo, ok := in.(wherewolf.Topology)
	if !ok {
		t.Fatalf("input=%T want Topology", in)
	}

	s := wherewolf.New(wherewolf.WithTopologyConverter(conv))
	if err := s.AddAll(topo); err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	if got := s.LayerNames(); !reflect.DeepEqual(got, []string{"holed", "regions", "reversed"}) {
		t.Fatalf("names=%v", got)
	}

	if f, _ := s.FindIn("holed", orb.Point{5, 5}); f != nil {
		t.Fatalf("hole matched")
	}
	if f, _ := s.FindIn("holed", orb.Point{1, 1}); f == nil {
		t.Fatalf("outer ring not matched")
	}
	f, _ := s.FindIn("regions", orb.Point{21, 21})
	if f == nil || f.Properties["name"] != "far" {
		t.Fatalf("regions match=%v want far", f)
	}
}

func TestConverterRejectsForeignDoc(t *testing.T) {
	type other struct{ wherewolf.TopologyDoc }
	if _, err := (Converter{}).Feature(other{}, "x"); !errors.Is(err, ErrNotTopology) {
		t.Fatalf("err=%v want ErrNotTopology", err)
	}
}
