package wherewolf

import (
	"fmt"
	"slices"
	"sync"
)

// Store holds named layers of features. Queries run under a read lock and
// mutations under the write lock, so a query never sees a partially updated
// layer. Layers are replaced wholesale and never modified in place.
type Store struct {
	norm *Normalizer

	mu        sync.RWMutex
	layers    map[string][]*Feature
	bounds    *Bounds
	boundsGen uint64
}

type Option func(*Store)

// WithTopologyConverter enables Topology inputs.
func WithTopologyConverter(c TopologyConverter) Option {
	return func(s *Store) { s.norm = NewNormalizer(c) }
}

func New(opts ...Option) *Store {
	s := &Store{
		norm:   NewNormalizer(nil),
		layers: make(map[string][]*Feature),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddLayer normalizes in and inserts it as name, replacing any existing layer
// of that name. Nothing changes when normalization fails.
func (s *Store) AddLayer(name string, in Input, objectKey string) error {
	features, err := s.norm.Normalize(in, objectKey)
	if err != nil {
		return fmt.Errorf("add layer %q: %w", name, err)
	}
	s.mu.Lock()
	s.layers[name] = features
	s.mu.Unlock()
	return nil
}

// AddAll adds one layer per topology object, named by the object key. Keys
// are processed in sorted order; layers added before a failing key stay.
func (s *Store) AddAll(t Topology) error {
	if t.Doc == nil {
		return fmt.Errorf("%w: add all requires a topology", ErrInvalidInput)
	}
	keys := t.Doc.ObjectKeys()
	if len(keys) == 0 {
		return fmt.Errorf("%w: add all requires a topology with objects", ErrInvalidInput)
	}
	for _, key := range slices.Sorted(slices.Values(keys)) {
		if err := s.AddLayer(key, t, key); err != nil {
			return err
		}
	}
	return nil
}

// RemoveLayer deletes name. Removing an unknown layer is a no-op.
func (s *Store) RemoveLayer(name string) {
	s.mu.Lock()
	delete(s.layers, name)
	s.mu.Unlock()
}

// LayerNames returns the registered names, sorted.
func (s *Store) LayerNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.layers))
	for name := range s.layers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Layer returns the features of name. The slice must not be modified.
func (s *Store) Layer(name string) ([]*Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.layers[name]
	return fs, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

// FeatureCount is the number of features across all layers.
func (s *Store) FeatureCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, fs := range s.layers {
		n += len(fs)
	}
	return n
}
