// Package router exposes the lookup, layer and bounds HTTP API.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/wherewolf/internal/core/observability"
	"github.com/mohammed-shakir/wherewolf/internal/geocode"
	"github.com/mohammed-shakir/wherewolf/internal/geoip"
	"github.com/mohammed-shakir/wherewolf/internal/hitevents"
	"github.com/mohammed-shakir/wherewolf/internal/layersync"
	"github.com/mohammed-shakir/wherewolf/internal/mapper"
	"github.com/mohammed-shakir/wherewolf/internal/source"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

// AddressFinder is satisfied by *geocode.Finder.
type AddressFinder interface {
	FindAddress(ctx context.Context, address, layer string) (geocode.AddressResult, error)
}

// IPLocator is satisfied by *geoip.Locator.
type IPLocator interface {
	Locate(ip string) (geoip.Location, error)
}

// LayerReplicator is satisfied by *layersync.Replicator.
type LayerReplicator interface {
	Save(ctx context.Context, doc source.Document) (layersync.Event, error)
	Remove(ctx context.Context, name string) (layersync.Event, error)
}

// Deps are the collaborators of the API. Only Store is required; routes
// whose collaborator is missing answer 404.
type Deps struct {
	Store      *wherewolf.Store
	Decoder    wherewolf.TopologyDecoder
	Finder     AddressFinder
	GeoIP      IPLocator
	Mapper     mapper.Interface
	Hits       *hitevents.Recorder
	Replicator LayerReplicator
	H3Res      int
	Logger     *slog.Logger
	MaxBody    int64
}

type api struct {
	Deps
}

// Mount registers every route on r.
func Mount(r chi.Router, d Deps) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.MaxBody <= 0 {
		d.MaxBody = 64 << 20
	}
	a := &api{Deps: d}

	r.Get("/find", instrument("/find", a.findQuery))
	r.Post("/find", instrument("/find", a.findBody))
	r.Get("/find/address", instrument("/find/address", a.findAddress))
	r.Get("/find/ip", instrument("/find/ip", a.findIP))

	r.Get("/layers", instrument("/layers", a.listLayers))
	r.Post("/layers", instrument("/layers", a.addAll))
	r.Put("/layers/{name}", instrument("/layers/{name}", a.putLayer))
	r.Delete("/layers/{name}", instrument("/layers/{name}", a.deleteLayer))
	r.Get("/layers/{name}/cells", instrument("/layers/{name}/cells", a.layerCells))

	r.Get("/bounds", instrument("/bounds", a.getBounds))
	r.Put("/bounds", instrument("/bounds", a.putBounds))

	r.Get("/stats/hot", instrument("/stats/hot", a.hotKeys))
}

func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (a *api) layerStats() {
	observability.SetLayerStats(a.Store.Len(), a.Store.FeatureCount())
}
