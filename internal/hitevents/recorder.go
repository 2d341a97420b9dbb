package hitevents

import (
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wherewolf/internal/hotness"
	"github.com/mohammed-shakir/wherewolf/internal/mapper"
)

// Sink receives hit events. *Publisher implements it.
type Sink interface {
	Publish(ev Event)
}

// Recorder maps each lookup to an H3 cell, bumps the cell's hotness and
// forwards the hit to a sink. Any of the collaborators may be nil.
type Recorder struct {
	mapper mapper.Interface
	hot    hotness.Interface
	sink   Sink
	res    int
	log    *slog.Logger
	now    func() time.Time
}

func NewRecorder(m mapper.Interface, hot hotness.Interface, sink Sink, res int, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{mapper: m, hot: hot, sink: sink, res: res, log: log, now: time.Now}
}

// Key is the hotness key for a layer and cell.
func Key(layer, cell string) string { return layer + "/" + cell }

// Record notes one lookup of p against each layer in matches.
func (r *Recorder) Record(p orb.Point, matches map[string]bool) {
	if r == nil || len(matches) == 0 {
		return
	}
	var cell string
	if r.mapper != nil {
		c, err := r.mapper.CellForPoint(p, r.res)
		if err != nil {
			r.log.Debug("hit cell lookup failed", "err", err)
		} else {
			cell = c
		}
	}
	ts := r.now().UTC()
	for layer, matched := range matches {
		var score float64
		if r.hot != nil && cell != "" {
			score = r.hot.Inc(Key(layer, cell))
		}
		if r.sink != nil {
			r.sink.Publish(Event{
				Layer:   layer,
				Lon:     p[0],
				Lat:     p[1],
				Cell:    cell,
				Hotness: score,
				Matched: matched,
				TS:      ts,
			})
		}
	}
}

// Top returns the hottest layer/cell keys.
func (r *Recorder) Top(n int) []hotness.Entry {
	if r == nil || r.hot == nil {
		return nil
	}
	return r.hot.Top(n)
}
