package layersync

import (
	"context"
	"fmt"

	"github.com/mohammed-shakir/wherewolf/internal/source"
)

// Repository is the shared document store replicas read from.
type Repository interface {
	Put(ctx context.Context, doc source.Document) error
	Delete(ctx context.Context, name string) error
}

// Publisher sends layer events. *Announcer implements it.
type Publisher interface {
	Announce(ctx context.Context, op, layer string) (Event, error)
}

// Replicator writes layer documents to the repository and then announces the
// change, so every consumer (this process included) applies it.
type Replicator struct {
	repo Repository
	pub  Publisher
}

func NewReplicator(repo Repository, pub Publisher) *Replicator {
	return &Replicator{repo: repo, pub: pub}
}

func (r *Replicator) Save(ctx context.Context, doc source.Document) (Event, error) {
	if err := r.repo.Put(ctx, doc); err != nil {
		return Event{}, fmt.Errorf("store layer %q: %w", doc.Name, err)
	}
	return r.pub.Announce(ctx, OpUpsert, doc.Name)
}

func (r *Replicator) Remove(ctx context.Context, name string) (Event, error) {
	if err := r.repo.Delete(ctx, name); err != nil {
		return Event{}, fmt.Errorf("delete layer %q: %w", name, err)
	}
	return r.pub.Announce(ctx, OpDelete, name)
}
