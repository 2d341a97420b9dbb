// Package geocode resolves free-form addresses to points and runs them
// through a wherewolf store.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

// ErrNoLocation is returned when the geocoder yields no candidate inside the
// store's search bounds.
var ErrNoLocation = errors.New("no location found")

type Candidate struct {
	Point orb.Point
	Label string
}

// Query is one geocoding request. ViewBox, when set, biases the geocoder
// towards the rectangle; it does not restrict results.
type Query struct {
	Address string
	ViewBox *ViewBox
}

// ViewBox is search bounds in the form geocoders take them: Param is
// "left,top,right,bottom".
type ViewBox struct {
	Bounds wherewolf.Bounds
	Param  string
}

func NewViewBox(b wherewolf.Bounds) *ViewBox {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return &ViewBox{
		Bounds: b,
		Param:  f(b[0][0]) + "," + f(b[1][1]) + "," + f(b[1][0]) + "," + f(b[0][1]),
	}
}

// Geocoder resolves an address into candidates, best first. Implementations
// return exactly one of a candidate list or an error.
type Geocoder interface {
	Geocode(ctx context.Context, q Query) ([]Candidate, error)
}

// StatusError reports a non-success response from an upstream geocoder.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("geocoder status %d", e.Code)
	}
	return fmt.Sprintf("geocoder status %d: %s", e.Code, e.Body)
}
