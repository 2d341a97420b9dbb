// Package source loads raw layer documents from files, Redis or Postgres and
// applies them to a wherewolf store.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

// ErrNotFound is returned by stores asked for a layer they do not hold.
var ErrNotFound = errors.New("layer document not found")

// Document is a raw GeoJSON or TopoJSON document destined for a store. With
// All set, every object of a topology becomes its own layer and Name is
// ignored.
type Document struct {
	Name   string
	Data   []byte
	Object string
	All    bool
}

// Loader yields every document it knows about.
type Loader interface {
	Load(ctx context.Context) ([]Document, error)
}

// Apply decodes doc and adds it to store.
func Apply(store *wherewolf.Store, dec wherewolf.TopologyDecoder, doc Document) error {
	in, err := wherewolf.DecodeInput(doc.Data, dec)
	if err != nil {
		return fmt.Errorf("layer %q: %w", doc.Name, err)
	}
	if doc.All {
		t, ok := in.(wherewolf.Topology)
		if !ok {
			return fmt.Errorf("%w: add all needs a topology document", wherewolf.ErrInvalidInput)
		}
		return store.AddAll(t)
	}
	if doc.Name == "" {
		return fmt.Errorf("%w: document without a layer name", wherewolf.ErrInvalidInput)
	}
	return store.AddLayer(doc.Name, in, doc.Object)
}

// LoadInto runs every loader and applies what it yields. Failing documents
// are logged and skipped; the joined errors are returned after all loaders
// ran.
func LoadInto(ctx context.Context, store *wherewolf.Store, dec wherewolf.TopologyDecoder, log *slog.Logger, loaders ...Loader) error {
	if log == nil {
		log = slog.Default()
	}
	var errs []error
	for _, l := range loaders {
		docs, err := l.Load(ctx)
		if err != nil {
			log.Error("layer source failed", "source", fmt.Sprintf("%T", l), "err", err)
			errs = append(errs, err)
			continue
		}
		for _, d := range docs {
			if err := Apply(store, dec, d); err != nil {
				log.Warn("layer rejected", "layer", d.Name, "err", err)
				errs = append(errs, err)
				continue
			}
			log.Info("layer loaded", "layer", d.Name, "all", d.All, "bytes", len(d.Data))
		}
	}
	return errors.Join(errs...)
}
