package layersync

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// revDedupe remembers the last applied revision per layer. Checking and
// committing are separate so a failed apply can be retried.
type revDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newRevDedupe(size int) *revDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, uint64](size)
	return &revDedupe{lru: c}
}

// stale reports whether rev is at or below the last committed revision.
func (d *revDedupe) stale(layer string, rev uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(layer)
	return ok && rev <= last
}

func (d *revDedupe) commit(layer string, rev uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(layer); ok && rev <= last {
		return
	}
	d.lru.Add(layer, rev)
}
