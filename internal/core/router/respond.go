package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mohammed-shakir/wherewolf/internal/core/model"
	"github.com/mohammed-shakir/wherewolf/internal/geocode"
	"github.com/mohammed-shakir/wherewolf/internal/geoip"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

var errDisabled = errors.New("not enabled on this server")

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, model.ErrorResponse{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP statuses. Anything unknown is a
// server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wherewolf.ErrInvalidInput),
		errors.Is(err, wherewolf.ErrInvalidPoint),
		errors.Is(err, wherewolf.ErrInvalidBounds),
		errors.Is(err, geoip.ErrInvalidIP):
		return http.StatusBadRequest
	case errors.Is(err, wherewolf.ErrLayerNotFound),
		errors.Is(err, geocode.ErrNoLocation),
		errors.Is(err, geoip.ErrNoCoordinates),
		errors.Is(err, errDisabled):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
