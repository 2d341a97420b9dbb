// Command wherewolf answers point lookups against the layers of a manifest.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/urfave/cli/v2"

	"github.com/mohammed-shakir/wherewolf/internal/core/httpclient"
	"github.com/mohammed-shakir/wherewolf/internal/geocode"
	"github.com/mohammed-shakir/wherewolf/internal/logger"
	h3mapper "github.com/mohammed-shakir/wherewolf/internal/mapper/h3"
	"github.com/mohammed-shakir/wherewolf/internal/source"
	"github.com/mohammed-shakir/wherewolf/internal/source/manifest"
	"github.com/mohammed-shakir/wherewolf/internal/topology"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

var Version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "wherewolf:", err)
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "wherewolf",
		Usage:     "find which region of each layer contains a point",
		Version:   Version,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "TOML layer manifest", EnvVars: []string{"LAYER_MANIFEST"}, Required: true},
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "bounds", Usage: "search bounds as minLng,minLat,maxLng,maxLat", EnvVars: []string{"SEARCH_BOUNDS"}},
		},
		Commands: []*cli.Command{
			{
				Name:  "find",
				Usage: "look a point (or an address) up in every layer",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "lng", Usage: "longitude"},
					&cli.Float64Flag{Name: "lat", Usage: "latitude"},
					&cli.StringFlag{Name: "address", Usage: "geocode this address instead of --lng/--lat"},
					&cli.StringFlag{Name: "geocoder", Value: geocode.DefaultNominatimURL, EnvVars: []string{"GEOCODER_URL"}},
					&cli.StringFlag{Name: "layer", Usage: "restrict the lookup to one layer"},
					&cli.BoolFlag{Name: "whole", Usage: "print whole features instead of properties"},
				},
				Action: findAction,
			},
			{
				Name:   "layers",
				Usage:  "list layer names",
				Action: layersAction,
			},
			{
				Name:  "cells",
				Usage: "list the H3 cells covering a layer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "layer", Required: true},
					&cli.IntFlag{Name: "res", Value: 8},
				},
				Action: cellsAction,
			},
		},
	}
}

func loadStore(c *cli.Context) (*wherewolf.Store, error) {
	zl := logger.Build(logger.Config{Level: c.String("log-level"), Console: true, Component: "cli"}, c.App.ErrWriter)
	log := logger.NewSlog(&zl)

	m, err := manifest.ReadFile(c.String("manifest"))
	if err != nil {
		return nil, err
	}
	conv := topology.Converter{}
	store := wherewolf.New(wherewolf.WithTopologyConverter(conv))
	if err := source.LoadInto(c.Context, store, conv, log, m); err != nil {
		return nil, err
	}
	if raw := c.String("bounds"); raw != "" {
		b, err := parseBounds(raw)
		if err != nil {
			return nil, err
		}
		if err := store.SetBounds(b); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func parseBounds(raw string) (wherewolf.Bounds, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return wherewolf.Bounds{}, fmt.Errorf("--bounds: want minLng,minLat,maxLng,maxLat, got %q", raw)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return wherewolf.Bounds{}, fmt.Errorf("--bounds: %w", err)
		}
		v[i] = f
	}
	return wherewolf.Bounds{{v[0], v[1]}, {v[2], v[3]}}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func findAction(c *cli.Context) error {
	store, err := loadStore(c)
	if err != nil {
		return err
	}
	layer, whole := c.String("layer"), c.Bool("whole")

	if addr := c.String("address"); addr != "" {
		return findAddress(c, store, addr, layer, whole)
	}
	if !c.IsSet("lng") || !c.IsSet("lat") {
		return errors.New("--lng and --lat (or --address) are required")
	}
	p := orb.Point{c.Float64("lng"), c.Float64("lat")}

	if layer != "" {
		f, err := store.FindIn(layer, p)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, f.Result(whole))
	}
	all, err := store.Find(p)
	if err != nil {
		return err
	}
	out := make(map[string]any, len(all))
	for name, f := range all {
		out[name] = f.Result(whole)
	}
	return printJSON(c.App.Writer, out)
}

func findAddress(c *cli.Context, store *wherewolf.Store, address, layer string, whole bool) error {
	nom, err := geocode.NewNominatim(geocode.Config{
		BaseURL:   c.String("geocoder"),
		UserAgent: "wherewolf-cli/" + Version,
	}, httpclient.NewOutbound(15*time.Second), nil)
	if err != nil {
		return err
	}
	finder, err := geocode.NewFinder(store, nom)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()
	res, err := finder.FindAddress(ctx, address, layer)
	if err != nil {
		return err
	}
	results := make(map[string]any, len(res.Results))
	for name, f := range res.Results {
		results[name] = f.Result(whole)
	}
	return printJSON(c.App.Writer, map[string]any{
		"latLng":  res.Point,
		"label":   res.Label,
		"results": results,
	})
}

func layersAction(c *cli.Context) error {
	store, err := loadStore(c)
	if err != nil {
		return err
	}
	for _, n := range store.LayerNames() {
		if _, err := fmt.Fprintln(c.App.Writer, n); err != nil {
			return err
		}
	}
	return nil
}

func cellsAction(c *cli.Context) error {
	store, err := loadStore(c)
	if err != nil {
		return err
	}
	layer := c.String("layer")
	feats, ok := store.Layer(layer)
	if !ok {
		return fmt.Errorf("%w: %q", wherewolf.ErrLayerNotFound, layer)
	}
	m := h3mapper.New()
	seen := map[string]struct{}{}
	for _, f := range feats {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		cells, err := m.CellsForGeometry(f.Geometry, c.Int("res"))
		if err != nil {
			return err
		}
		for _, cell := range cells {
			if _, dup := seen[cell]; dup {
				continue
			}
			seen[cell] = struct{}{}
			if _, err := fmt.Fprintln(c.App.Writer, cell); err != nil {
				return err
			}
		}
	}
	return nil
}

