package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wherewolf/internal/core/model"
	"github.com/mohammed-shakir/wherewolf/internal/core/observability"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

func parseOptions(r *http.Request) model.FindOptions {
	q := r.URL.Query()
	whole, _ := strconv.ParseBool(q.Get("whole"))
	return model.FindOptions{Layer: strings.TrimSpace(q.Get("layer")), Whole: whole}
}

// parseLngLat reads the lng and lat query parameters. Both are required.
func parseLngLat(r *http.Request) (orb.Point, error) {
	q := r.URL.Query()
	rawLng, rawLat := strings.TrimSpace(q.Get("lng")), strings.TrimSpace(q.Get("lat"))
	if rawLng == "" || rawLat == "" {
		return orb.Point{}, fmt.Errorf("%w: latitude/longitude required", wherewolf.ErrInvalidPoint)
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: lng: %w", wherewolf.ErrInvalidPoint, err)
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: lat: %w", wherewolf.ErrInvalidPoint, err)
	}
	return orb.Point{lng, lat}, nil
}

func (a *api) findQuery(w http.ResponseWriter, r *http.Request) {
	p, err := parseLngLat(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.respondFind(w, r, p, parseOptions(r), nil)
}

func (a *api) findBody(w http.ResponseWriter, r *http.Request) {
	var req model.FindRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", wherewolf.ErrInvalidPoint, err))
		return
	}
	p, err := wherewolf.ParsePoint(req.Point)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.respondFind(w, r, p, model.FindOptions{Layer: strings.TrimSpace(req.Layer), Whole: req.WholeFeature}, nil)
}

// respondFind runs the lookup for p and writes the response. decorate, when
// set, adds source details (geocoder label, ip location) to the response.
func (a *api) respondFind(w http.ResponseWriter, r *http.Request, p orb.Point, opts model.FindOptions, decorate func(*model.FindResponse)) {
	start := time.Now()
	resp := model.FindResponse{LatLng: wherewolf.LatLng{Lat: p[1], Lng: p[0]}}
	var matches map[string]bool

	if opts.Layer != "" {
		f, err := a.Store.FindIn(opts.Layer, p)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		resp.Results = f.Result(opts.Whole)
		matches = map[string]bool{opts.Layer: f != nil}
		observability.ObserveFind("layer", matches, time.Since(start).Seconds())
	} else {
		all, err := a.Store.Find(p)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		out := make(map[string]any, len(all))
		matches = make(map[string]bool, len(all))
		for name, f := range all {
			out[name] = f.Result(opts.Whole)
			matches[name] = f != nil
		}
		resp.Results = out
		observability.ObserveFind("all", matches, time.Since(start).Seconds())
	}

	a.Hits.Record(p, matches)
	if decorate != nil {
		decorate(&resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) findAddress(w http.ResponseWriter, r *http.Request) {
	if a.Finder == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("geocoding: %w", errDisabled))
		return
	}
	address := strings.TrimSpace(r.URL.Query().Get("q"))
	if address == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing required parameter: q"))
		return
	}
	opts := parseOptions(r)

	res, err := a.Finder.FindAddress(r.Context(), address, opts.Layer)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			// anything that is not ours came from the geocoder
			code = http.StatusBadGateway
		}
		a.Logger.DebugContext(r.Context(), "address lookup failed", "address", address, "err", err)
		writeError(w, code, err)
		return
	}

	resp := model.FindResponse{LatLng: res.Point, Label: res.Label}
	matches := make(map[string]bool, len(res.Results))
	if opts.Layer != "" {
		f := res.Results[opts.Layer]
		resp.Results = f.Result(opts.Whole)
		matches[opts.Layer] = f != nil
	} else {
		out := make(map[string]any, len(res.Results))
		for name, f := range res.Results {
			out[name] = f.Result(opts.Whole)
			matches[name] = f != nil
		}
		resp.Results = out
	}
	a.Hits.Record(res.Point.Point(), matches)
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) findIP(w http.ResponseWriter, r *http.Request) {
	if a.GeoIP == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("geoip: %w", errDisabled))
		return
	}
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		ip = clientIP(r)
	}
	loc, err := a.GeoIP.Locate(ip)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.respondFind(w, r, loc.Point, parseOptions(r), func(resp *model.FindResponse) {
		resp.Location = &model.IPLocation{City: loc.City, Country: loc.Country, AccuracyRadius: loc.AccuracyRadius}
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
