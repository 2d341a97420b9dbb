package router

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wherewolf/internal/core/model"
	"github.com/mohammed-shakir/wherewolf/internal/source"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

func (a *api) listLayers(w http.ResponseWriter, _ *http.Request) {
	names := a.Store.LayerNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, model.LayersResponse{Layers: names})
}

func (a *api) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.MaxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: document larger than %d bytes", wherewolf.ErrInvalidInput, mbe.Limit)
		}
		return nil, fmt.Errorf("%w: read body: %w", wherewolf.ErrInvalidInput, err)
	}
	return b, nil
}

// putLayer adds or replaces one layer. With a replicator the document is
// also stored and announced to the other replicas.
func (a *api) putLayer(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: layer name required", wherewolf.ErrInvalidInput))
		return
	}
	data, err := a.readBody(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	doc := source.Document{Name: name, Data: data, Object: strings.TrimSpace(r.URL.Query().Get("object"))}
	a.apply(w, r, doc)
}

// addAll adds every object of a TopoJSON body as its own layer. Each layer is
// replicated as its own document selecting that object, so deleting one
// layer later removes exactly what was stored for it.
func (a *api) addAll(w http.ResponseWriter, r *http.Request) {
	data, err := a.readBody(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	in, err := wherewolf.DecodeInput(data, a.Decoder)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	t, ok := in.(wherewolf.Topology)
	if !ok {
		err := fmt.Errorf("%w: add all needs a topology document", wherewolf.ErrInvalidInput)
		writeError(w, statusFor(err), err)
		return
	}
	if err := a.Store.AddAll(t); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.layerStats()
	keys := slices.Sorted(slices.Values(t.Doc.ObjectKeys()))
	a.Logger.InfoContext(r.Context(), "topology added", "layers", keys, "bytes", len(data))

	docs := make([]source.Document, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, source.Document{Name: key, Data: data, Object: key})
	}
	if !a.replicate(w, r, docs...) {
		return
	}
	writeJSON(w, http.StatusCreated, model.LayersResponse{Layers: a.Store.LayerNames()})
}

func (a *api) apply(w http.ResponseWriter, r *http.Request, doc source.Document) {
	if err := source.Apply(a.Store, a.Decoder, doc); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.layerStats()
	a.Logger.InfoContext(r.Context(), "layer added", "layer", doc.Name, "bytes", len(doc.Data))

	if !a.replicate(w, r, doc) {
		return
	}
	writeJSON(w, http.StatusCreated, model.LayersResponse{Layers: a.Store.LayerNames()})
}

// replicate saves docs through the replicator, if any. On failure it writes
// a 502 and reports false.
func (a *api) replicate(w http.ResponseWriter, r *http.Request, docs ...source.Document) bool {
	if a.Replicator == nil {
		return true
	}
	for _, doc := range docs {
		if _, err := a.Replicator.Save(r.Context(), doc); err != nil {
			a.Logger.ErrorContext(r.Context(), "layer replication failed", "layer", doc.Name, "err", err)
			writeError(w, http.StatusBadGateway, err)
			return false
		}
	}
	return true
}

// deleteLayer always answers 204; removing an unknown layer is a no-op.
func (a *api) deleteLayer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a.Store.RemoveLayer(name)
	a.layerStats()
	if a.Replicator != nil {
		if _, err := a.Replicator.Remove(r.Context(), name); err != nil {
			a.Logger.WarnContext(r.Context(), "layer delete replication failed", "layer", name, "err", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// layerCells lists the H3 cells covering the polygons of a layer. Features
// with other geometries are skipped.
func (a *api) layerCells(w http.ResponseWriter, r *http.Request) {
	if a.Mapper == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("h3: %w", errDisabled))
		return
	}
	name := chi.URLParam(r, "name")
	res := a.H3Res
	if raw := r.URL.Query().Get("res"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid res: %w", err))
			return
		}
		res = n
	}
	feats, ok := a.Store.Layer(name)
	if !ok {
		err := fmt.Errorf("%w: %q", wherewolf.ErrLayerNotFound, name)
		writeError(w, statusFor(err), err)
		return
	}

	seen := make(map[string]struct{})
	cells := []string{}
	for _, f := range feats {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		cs, err := a.Mapper.CellsForGeometry(f.Geometry, res)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		for _, c := range cs {
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				cells = append(cells, c)
			}
		}
	}
	sort.Strings(cells)
	writeJSON(w, http.StatusOK, model.CellsResponse{Layer: name, Res: res, Cells: cells})
}
