package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

// Finder geocodes an address and looks the first in-bounds candidate up in a
// store.
type Finder struct {
	store *wherewolf.Store
	geo   Geocoder

	mu      sync.Mutex
	viewGen uint64
	view    *ViewBox
}

func NewFinder(store *wherewolf.Store, geo Geocoder) (*Finder, error) {
	if store == nil {
		return nil, errors.New("geocode: nil store")
	}
	if geo == nil {
		return nil, errors.New("geocode: no geocoder configured")
	}
	return &Finder{store: store, geo: geo}, nil
}

// AddressResult carries the lookup results together with the point that was
// used. With a layer, Results holds only that layer.
type AddressResult struct {
	Results   map[string]*wherewolf.Feature
	Point     wherewolf.LatLng
	Label     string
	Candidate int
}

// FindAddress geocodes address, drops candidates outside the store's search
// bounds (if any), and runs Find on the first remaining one. Geocoder errors
// are returned unchanged. layer, when not empty, restricts the lookup and must
// exist; an unknown layer fails before the geocoder is called.
func (f *Finder) FindAddress(ctx context.Context, address, layer string) (AddressResult, error) {
	if layer != "" {
		if _, ok := f.store.Layer(layer); !ok {
			return AddressResult{}, fmt.Errorf("%w: %q", wherewolf.ErrLayerNotFound, layer)
		}
	}
	bounds, ok, view := f.viewBox()
	q := Query{Address: address}
	if ok {
		q.ViewBox = view
	}

	cands, err := f.geo.Geocode(ctx, q)
	if err != nil {
		return AddressResult{}, err
	}

	idx := -1
	for i, c := range cands {
		if !ok || bounds.Contains(c.Point) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return AddressResult{}, ErrNoLocation
	}
	c := cands[idx]

	res := AddressResult{
		Point:     wherewolf.LatLng{Lat: c.Point[1], Lng: c.Point[0]},
		Label:     c.Label,
		Candidate: idx,
	}
	if layer == "" {
		res.Results, err = f.store.Find(c.Point)
	} else {
		var feat *wherewolf.Feature
		feat, err = f.store.FindIn(layer, c.Point)
		res.Results = map[string]*wherewolf.Feature{layer: feat}
	}
	if err != nil {
		return AddressResult{}, fmt.Errorf("find %v: %w", c.Point, err)
	}
	return res, nil
}

// viewBox returns the current bounds and the geocoder form derived from them.
// The derived form is rebuilt only when the bounds generation moves.
func (f *Finder) viewBox() (wherewolf.Bounds, bool, *ViewBox) {
	b, gen, ok := f.store.BoundsSnapshot()
	if !ok {
		return b, false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.view == nil || f.viewGen != gen {
		f.view, f.viewGen = NewViewBox(b), gen
	}
	return b, true, f.view
}
