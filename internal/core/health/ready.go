// Package health serves liveness and readiness checks.
package health

import (
	"encoding/json"
	"net/http"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// LayerLister is satisfied by *wherewolf.Store.
type LayerLister interface {
	LayerNames() []string
}

// Readiness reports ready once at least one layer is loaded.
func Readiness(ll LayerLister) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status string   `json:"status"`
			Layers []string `json:"layers,omitempty"`
		}
		names := ll.LayerNames()
		ready := len(names) > 0
		out := resp{Status: "not_ready"}
		if ready {
			out.Status = "ready"
			out.Layers = names
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
