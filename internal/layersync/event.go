package layersync

import (
	"errors"
	"strings"
	"time"
)

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Event announces a change to a stored layer document. Rev increases per
// layer; consumers skip revisions they have already applied.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Layer   string    `json:"layer"`
	Rev     uint64    `json:"rev"`
	TS      time.Time `json:"ts"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return errors.New("version must be 1")
	}
	switch e.Op {
	case OpUpsert, OpDelete:
	default:
		return errors.New("op must be upsert|delete")
	}
	if strings.TrimSpace(e.Layer) == "" {
		return errors.New("layer is required")
	}
	if e.Rev == 0 {
		return errors.New("rev must be positive")
	}
	return nil
}
