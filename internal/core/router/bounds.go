package router

import (
	"net/http"
	"strconv"

	"github.com/mohammed-shakir/wherewolf/internal/core/model"
	"github.com/mohammed-shakir/wherewolf/internal/hotness"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

func (a *api) getBounds(w http.ResponseWriter, _ *http.Request) {
	b, ok := a.Store.Bounds()
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *api) putBounds(w http.ResponseWriter, r *http.Request) {
	data, err := a.readBody(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	b, err := wherewolf.ParseBounds(data)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := a.Store.SetBounds(b); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.Logger.InfoContext(r.Context(), "search bounds set", "bounds", b)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) hotKeys(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	keys := a.Hits.Top(n)
	if keys == nil {
		keys = []hotness.Entry{}
	}
	writeJSON(w, http.StatusOK, model.HotResponse{Keys: keys})
}
