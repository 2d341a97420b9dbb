package wherewolf

import (
	"errors"
	"math"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func square(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func feature(g orb.Geometry, props geojson.Properties) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties = props
	return f
}

// fakeTopo is a topology whose objects are ready-made collections.
type fakeTopo map[string]*geojson.FeatureCollection

func (t fakeTopo) ObjectKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	return keys
}

type fakeConverter struct {
	calls []string
	err   error
}

func (c *fakeConverter) Feature(doc TopologyDoc, key string) (*geojson.FeatureCollection, error) {
	c.calls = append(c.calls, key)
	if c.err != nil {
		return nil, c.err
	}
	return doc.(fakeTopo)[key], nil
}

func collectionOf(name string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Polygon{square(0, 0, 1, 1)}, geojson.Properties{"name": name}))
	return fc
}

func TestHoleExclusion(t *testing.T) {
	s := New()
	poly := orb.Polygon{square(0, 0, 10, 10), square(4, 4, 6, 6)}
	if err := s.AddLayer("l", FeatureList{feature(poly, geojson.Properties{"id": 1})}, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}

	got, err := s.FindIn("l", orb.Point{5, 5})
	if err != nil {
		t.Fatalf("FindIn: %v", err)
	}
	if got != nil {
		t.Fatalf("point inside hole matched %+v", got.Properties)
	}

	got, err = s.FindIn("l", orb.Point{1, 1})
	if err != nil {
		t.Fatalf("FindIn: %v", err)
	}
	if got == nil || got.Properties["id"] != 1 {
		t.Fatalf("point (1,1) got=%v want id=1", got)
	}
}

func TestBBoxDerivedFromOuterRingOnly(t *testing.T) {
	n := NewNormalizer(nil)
	poly := orb.Polygon{
		{{0, 0}, {4, 0}, {4, 3}, {0, 3}},
		{{-50, -50}, {50, -50}, {50, 50}},
	}
	fs, err := n.Normalize(FeatureList{feature(poly, nil)}, "")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 3}}
	if fs[0].BBox != want {
		t.Fatalf("bbox=%v want %v", fs[0].BBox, want)
	}
}

func TestBBoxMultiPolygonSpansConstituents(t *testing.T) {
	mp := orb.MultiPolygon{
		{square(0, 0, 1, 1)},
		{square(5, -2, 6, 2), square(5.2, -1, 5.8, 1)},
	}
	got := OuterBound(mp)
	want := orb.Bound{Min: orb.Point{0, -2}, Max: orb.Point{6, 2}}
	if got != want {
		t.Fatalf("bbox=%v want %v", got, want)
	}
}

func TestSuppliedBBoxIsTrusted(t *testing.T) {
	f := feature(orb.Polygon{square(0, 0, 10, 10)}, nil)
	f.BBox = geojson.BBox{0, 0, 1, 1}

	s := New()
	if err := s.AddLayer("l", FeatureList{f}, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	// (5,5) is inside the polygon but outside the supplied bbox
	got, _ := s.FindIn("l", orb.Point{5, 5})
	if got != nil {
		t.Fatalf("expected bbox pre-filter to reject (5,5)")
	}
	got, _ = s.FindIn("l", orb.Point{0.5, 0.5})
	if got == nil {
		t.Fatalf("expected match at (0.5,0.5)")
	}
}

func TestFirstMatchWins(t *testing.T) {
	a := feature(orb.Polygon{square(0, 0, 10, 10)}, geojson.Properties{"name": "A"})
	b := feature(orb.Polygon{square(5, 5, 15, 15)}, geojson.Properties{"name": "B"})

	s := New()
	if err := s.AddLayer("l", FeatureList{a, b}, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	got, err := s.FindIn("l", orb.Point{7, 7})
	if err != nil {
		t.Fatalf("FindIn: %v", err)
	}
	if got == nil || got.Properties["name"] != "A" {
		t.Fatalf("got=%v want A", got)
	}

	got, _ = s.FindIn("l", orb.Point{12, 12})
	if got == nil || got.Properties["name"] != "B" {
		t.Fatalf("got=%v want B", got)
	}
}

func TestMultiPolygonSecondConstituent(t *testing.T) {
	mp := orb.MultiPolygon{
		{square(0, 0, 1, 1)},
		{square(10, 10, 12, 12)},
	}
	s := New()
	if err := s.AddLayer("l", FeatureList{feature(mp, geojson.Properties{"k": "v"})}, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	got, _ := s.FindIn("l", orb.Point{11, 11})
	if got == nil {
		t.Fatalf("point in second constituent not matched")
	}
	got, _ = s.FindIn("l", orb.Point{5, 5})
	if got != nil {
		t.Fatalf("point between constituents matched")
	}
}

func TestRemoveLayerIdempotent(t *testing.T) {
	s := New()
	fc := collectionOf("x")
	if err := s.AddLayer("a", FeatureCollection{Collection: fc}, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	if err := s.AddLayer("b", FeatureCollection{Collection: fc}, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}

	s.RemoveLayer("a")
	after := s.LayerNames()
	s.RemoveLayer("a")
	s.RemoveLayer("never-added")

	if got := s.LayerNames(); !reflect.DeepEqual(got, after) {
		t.Fatalf("names=%v want %v", got, after)
	}
	if !reflect.DeepEqual(after, []string{"b"}) {
		t.Fatalf("names=%v want [b]", after)
	}
}

func TestFindAllLayersHasExplicitNoMatch(t *testing.T) {
	s := New()
	_ = s.AddLayer("hit", FeatureList{feature(orb.Polygon{square(0, 0, 2, 2)}, geojson.Properties{"n": 1})}, "")
	_ = s.AddLayer("miss", FeatureList{feature(orb.Polygon{square(5, 5, 6, 6)}, nil)}, "")

	res, err := s.Find(orb.Point{1, 1})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("results=%d want 2", len(res))
	}
	if res["hit"] == nil {
		t.Fatalf("expected match in layer hit")
	}
	v, ok := res["miss"]
	if !ok || v != nil {
		t.Fatalf("layer miss: present=%v value=%v want present nil", ok, v)
	}
}

func TestFindErrors(t *testing.T) {
	s := New()
	if _, err := s.FindIn("nope", orb.Point{0, 0}); !errors.Is(err, ErrLayerNotFound) {
		t.Fatalf("err=%v want ErrLayerNotFound", err)
	}
	if _, err := s.Find(orb.Point{0, math.NaN()}); !errors.Is(err, ErrInvalidPoint) {
		t.Fatalf("err=%v want ErrInvalidPoint", err)
	}
}

func TestInvalidBoundsDoesNotMutate(t *testing.T) {
	s := New()
	good := Bounds{{0, 0}, {1, 1}}
	if err := s.SetBounds(good); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}
	_, gen, _ := s.BoundsSnapshot()

	if err := s.SetBounds(Bounds{{1, 1}, {0, 0}}); !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("err=%v want ErrInvalidBounds", err)
	}
	got, gen2, ok := s.BoundsSnapshot()
	if !ok || got != good || gen2 != gen {
		t.Fatalf("bounds=%v gen=%d ok=%v want %v gen=%d", got, gen2, ok, good, gen)
	}
}

func TestBoundsUnsetAndGeneration(t *testing.T) {
	s := New()
	if _, ok := s.Bounds(); ok {
		t.Fatalf("expected unset bounds")
	}
	_ = s.SetBounds(Bounds{{0, 0}, {1, 1}})
	_ = s.SetBounds(Bounds{{0, 0}, {2, 2}})
	b, gen, ok := s.BoundsSnapshot()
	if !ok || gen != 2 || b != (Bounds{{0, 0}, {2, 2}}) {
		t.Fatalf("bounds=%v gen=%d ok=%v", b, gen, ok)
	}
}

func TestAddAllFromTopology(t *testing.T) {
	conv := &fakeConverter{}
	s := New(WithTopologyConverter(conv))
	topo := fakeTopo{"a": collectionOf("a"), "b": collectionOf("b")}

	if err := s.AddAll(Topology{Doc: topo}); err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	got := s.LayerNames()
	slices.Sort(got)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("names=%v want [a b]", got)
	}
	f, _ := s.FindIn("b", orb.Point{0.5, 0.5})
	if f == nil || f.Properties["name"] != "b" {
		t.Fatalf("layer b feature=%v", f)
	}
}

func TestAddAllRejectsEmptyTopology(t *testing.T) {
	s := New(WithTopologyConverter(&fakeConverter{}))
	if err := s.AddAll(Topology{Doc: fakeTopo{}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v want ErrInvalidInput", err)
	}
	if err := s.AddAll(Topology{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v want ErrInvalidInput", err)
	}
}

func TestTopologyObjectKeySelection(t *testing.T) {
	conv := &fakeConverter{}
	s := New(WithTopologyConverter(conv))
	multi := Topology{Doc: fakeTopo{"a": collectionOf("a"), "b": collectionOf("b")}}
	single := Topology{Doc: fakeTopo{"only": collectionOf("only")}}

	if err := s.AddLayer("x", multi, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ambiguous key: err=%v want ErrInvalidInput", err)
	}
	if err := s.AddLayer("x", multi, "zzz"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown key: err=%v want ErrInvalidInput", err)
	}
	if s.Len() != 0 {
		t.Fatalf("failed adds must not register layers; got %v", s.LayerNames())
	}

	if err := s.AddLayer("x", multi, "b"); err != nil {
		t.Fatalf("explicit key: %v", err)
	}
	if err := s.AddLayer("y", single, ""); err != nil {
		t.Fatalf("single object: %v", err)
	}
	if !reflect.DeepEqual(conv.calls, []string{"b", "only"}) {
		t.Fatalf("converter calls=%v", conv.calls)
	}
}

func TestTopologyWithoutConverter(t *testing.T) {
	s := New()
	err := s.AddLayer("x", Topology{Doc: fakeTopo{"a": collectionOf("a")}}, "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v want ErrInvalidInput", err)
	}
}

func TestConverterErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	s := New(WithTopologyConverter(&fakeConverter{err: boom}))
	err := s.AddLayer("x", Topology{Doc: fakeTopo{"a": nil}}, "a")
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want wrapped boom", err)
	}
}

func TestInvalidInputs(t *testing.T) {
	s := New()
	cases := map[string]Input{
		"nil":             nil,
		"nil collection":  FeatureCollection{},
		"empty list":      FeatureList{},
		"nil first":       FeatureList{nil},
		"nil in the tail": FeatureList{feature(orb.Polygon{square(0, 0, 1, 1)}, nil), nil},
	}
	for name, in := range cases {
		if err := s.AddLayer(name, in, ""); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: err=%v want ErrInvalidInput", name, err)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("invalid inputs registered layers: %v", s.LayerNames())
	}
}

func TestStoreOwnsNormalizedData(t *testing.T) {
	ring := square(0, 0, 2, 2)
	props := geojson.Properties{"name": "orig"}
	gf := feature(orb.Polygon{ring}, props)

	s := New()
	if err := s.AddLayer("l", FeatureList{gf}, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	ring[1][0] = -100
	props["name"] = "changed"

	got, _ := s.FindIn("l", orb.Point{1.5, 0.5})
	if got == nil || got.Properties["name"] != "orig" {
		t.Fatalf("caller mutation leaked into store: %v", got)
	}
}

func TestReAddReplacesLayer(t *testing.T) {
	s := New()
	_ = s.AddLayer("l", FeatureList{feature(orb.Polygon{square(0, 0, 1, 1)}, geojson.Properties{"v": 1})}, "")
	_ = s.AddLayer("l", FeatureList{feature(orb.Polygon{square(0, 0, 1, 1)}, geojson.Properties{"v": 2})}, "")

	fs, ok := s.Layer("l")
	if !ok || len(fs) != 1 || fs[0].Properties["v"] != 2 {
		t.Fatalf("layer not replaced: %v", fs)
	}
	if s.FeatureCount() != 1 {
		t.Fatalf("feature count=%d want 1", s.FeatureCount())
	}
}

func TestNonPolygonalGeometryNeverMatches(t *testing.T) {
	s := New()
	fs := FeatureList{
		feature(orb.Point{1, 1}, nil),
		feature(nil, nil),
	}
	if err := s.AddLayer("l", fs, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	if got, _ := s.FindIn("l", orb.Point{1, 1}); got != nil {
		t.Fatalf("non-polygonal feature matched: %v", got)
	}
}

func TestResultShape(t *testing.T) {
	s := New()
	_ = s.AddLayer("l", FeatureList{feature(orb.Polygon{square(0, 0, 1, 1)}, geojson.Properties{"name": "x"})}, "")
	f, _ := s.FindIn("l", orb.Point{0.5, 0.5})

	props, ok := f.Result(false).(geojson.Properties)
	if !ok || props["name"] != "x" {
		t.Fatalf("properties result=%v", f.Result(false))
	}
	whole, ok := f.Result(true).(*geojson.Feature)
	if !ok || whole.Properties["name"] != "x" || len(whole.BBox) != 4 {
		t.Fatalf("whole result=%v", f.Result(true))
	}
	var none *Feature
	if none.Result(true) != nil {
		t.Fatalf("nil feature must yield nil result")
	}
}

func TestConcurrentUpdatesAndQueries(t *testing.T) {
	s := New()
	if err := s.AddLayer("static", FeatureList{feature(orb.Polygon{square(0, 0, 10, 10)}, geojson.Properties{"name": "static"})}, ""); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	churn := FeatureList{feature(orb.Polygon{square(0, 0, 10, 10)}, geojson.Properties{"name": "churn"})}
	p := orb.Point{5, 5}

	const rounds = 200
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				if err := s.AddLayer("churn", churn, ""); err != nil {
					t.Errorf("AddLayer: %v", err)
					return
				}
				s.RemoveLayer("churn")
			}
		}()
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				got, err := s.Find(p)
				if err != nil {
					t.Errorf("Find: %v", err)
					return
				}
				if f := got["static"]; f == nil || f.Properties["name"] != "static" {
					t.Errorf("static=%+v", f)
					return
				}
				if f, ok := got["churn"]; ok && (f == nil || f.Properties["name"] != "churn") {
					t.Errorf("churn=%+v", f)
					return
				}
				f, err := s.FindIn("churn", p)
				if err != nil && !errors.Is(err, ErrLayerNotFound) {
					t.Errorf("FindIn err=%v", err)
					return
				}
				if err == nil && (f == nil || f.Properties["name"] != "churn") {
					t.Errorf("FindIn churn=%+v", f)
					return
				}
				_ = s.LayerNames()
			}
		}()
	}
	wg.Wait()
}
