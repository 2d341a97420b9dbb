package layersync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Announcer publishes layer events. Messages are keyed by layer so the events
// of one layer stay ordered within a partition.
type Announcer struct {
	prod  sarama.SyncProducer
	topic string
	now   func() time.Time
}

func NewAnnouncer(brokers []string, topic string) (*Announcer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create layer event producer: %w", err)
	}
	return NewAnnouncerWithProducer(p, topic), nil
}

func NewAnnouncerWithProducer(p sarama.SyncProducer, topic string) *Announcer {
	return &Announcer{prod: p, topic: topic, now: time.Now}
}

// Announce sends op for layer. The revision is the wall clock in nanoseconds,
// which keeps revisions increasing across writer restarts.
func (a *Announcer) Announce(ctx context.Context, op, layer string) (Event, error) {
	now := a.now().UTC()
	ev := Event{Version: 1, Op: op, Layer: layer, Rev: uint64(now.UnixNano()), TS: now}
	if err := ev.Validate(); err != nil {
		return Event{}, fmt.Errorf("announce: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return Event{}, fmt.Errorf("announce marshal: %w", err)
	}
	_, _, err = a.prod.SendMessage(&sarama.ProducerMessage{
		Topic: a.topic,
		Key:   sarama.StringEncoder(layer),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return Event{}, fmt.Errorf("announce %s %q: %w", op, layer, err)
	}
	return ev, nil
}

func (a *Announcer) Close() error {
	return a.prod.Close()
}
