// Package geoip turns client IP addresses into points using a MaxMind GeoIP2
// or GeoLite2 City database.
package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/paulmach/orb"
)

var (
	ErrInvalidIP     = errors.New("invalid ip address")
	ErrNoCoordinates = errors.New("no coordinates for ip")
)

type Location struct {
	Point          orb.Point
	City           string
	Country        string
	AccuracyRadius uint16
}

// Locator is safe for concurrent use.
type Locator struct {
	r *geoip2.Reader
}

func Open(path string) (*Locator, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db %q: %w", path, err)
	}
	return &Locator{r: r}, nil
}

func (l *Locator) Locate(raw string) (Location, error) {
	ip := net.ParseIP(raw)
	if ip == nil {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidIP, raw)
	}
	if l == nil || l.r == nil {
		return Location{}, errors.New("geoip: locator is closed")
	}
	rec, err := l.r.City(ip)
	if err != nil {
		return Location{}, fmt.Errorf("geoip lookup %s: %w", ip, err)
	}
	loc := rec.Location
	if loc.Latitude == 0 && loc.Longitude == 0 && loc.AccuracyRadius == 0 {
		return Location{}, fmt.Errorf("%w: %s", ErrNoCoordinates, ip)
	}
	return Location{
		Point:          orb.Point{loc.Longitude, loc.Latitude},
		City:           rec.City.Names["en"],
		Country:        rec.Country.IsoCode,
		AccuracyRadius: loc.AccuracyRadius,
	}, nil
}

func (l *Locator) Close() error {
	if l == nil || l.r == nil {
		return nil
	}
	err := l.r.Close()
	l.r = nil
	return err
}
