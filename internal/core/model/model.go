// Package model defines the request and response shapes of the HTTP API.
package model

import (
	"encoding/json"

	"github.com/mohammed-shakir/wherewolf/internal/hotness"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

// FindRequest is the POST /find body. Point is [lng, lat] or
// {"lat": .., "lng": ..}.
type FindRequest struct {
	Point        json.RawMessage `json:"point"`
	Layer        string          `json:"layer,omitempty"`
	WholeFeature bool            `json:"wholeFeature,omitempty"`
}

// FindOptions are the knobs shared by every lookup endpoint.
type FindOptions struct {
	Layer string
	Whole bool
}

// FindResponse carries, without a layer, one entry per layer (null for no
// match); with a layer, that layer's result alone.
type FindResponse struct {
	LatLng   wherewolf.LatLng `json:"latLng"`
	Results  any              `json:"results"`
	Label    string           `json:"label,omitempty"`
	Location *IPLocation      `json:"location,omitempty"`
}

type IPLocation struct {
	City           string `json:"city,omitempty"`
	Country        string `json:"country,omitempty"`
	AccuracyRadius uint16 `json:"accuracyRadius,omitempty"`
}

type LayersResponse struct {
	Layers []string `json:"layers"`
}

type CellsResponse struct {
	Layer string   `json:"layer"`
	Res   int      `json:"res"`
	Cells []string `json:"cells"`
}

type HotResponse struct {
	Keys []hotness.Entry `json:"keys"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
