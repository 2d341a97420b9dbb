// Package manifest reads a TOML file listing layer documents on disk.
//
//	[[layer]]
//	name = "states"
//	path = "data/states.topojson"
//	object = "states"
//
//	[[layer]]
//	path = "data/regions.topojson"
//	all = true
package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mohammed-shakir/wherewolf/internal/source"
)

type Entry struct {
	Name   string `toml:"name"`
	Path   string `toml:"path"`
	Object string `toml:"object"`
	All    bool   `toml:"all"`
}

type Manifest struct {
	Layers []Entry `toml:"layer"`

	// relative paths resolve against this directory
	dir string
}

// Parse decodes a manifest. Unknown keys are an error so typos surface.
func Parse(data string, dir string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.Decode(data, &m)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if und := meta.Undecoded(); len(und) > 0 {
		keys := make([]string, len(und))
		for i, k := range und {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parse manifest: unknown keys %s", strings.Join(keys, ", "))
	}
	m.dir = dir
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(string(data), filepath.Dir(path))
}

func (m *Manifest) validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, e := range m.Layers {
		switch {
		case e.Path == "":
			errs = append(errs, fmt.Errorf("layer %d: path is required", i))
		case !e.All && e.Name == "":
			errs = append(errs, fmt.Errorf("layer %d (%s): name is required unless all = true", i, e.Path))
		case e.All && e.Object != "":
			errs = append(errs, fmt.Errorf("layer %d (%s): object and all are exclusive", i, e.Path))
		case e.Name != "" && seen[e.Name]:
			errs = append(errs, fmt.Errorf("layer %d: duplicate name %q", i, e.Name))
		}
		seen[e.Name] = true
	}
	return errors.Join(errs...)
}

// Load reads every listed file in manifest order.
func (m *Manifest) Load(ctx context.Context) ([]source.Document, error) {
	docs := make([]source.Document, 0, len(m.Layers))
	for _, e := range m.Layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := e.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.dir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read layer %q: %w", e.Name, err)
		}
		docs = append(docs, source.Document{Name: e.Name, Data: data, Object: e.Object, All: e.All})
	}
	return docs, nil
}
