// Package hitevents publishes lookup hits to Kafka and scores them by H3
// cell hotness.
package hitevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	obs "github.com/mohammed-shakir/wherewolf/internal/core/observability"
)

type Event struct {
	Layer   string    `json:"layer"`
	Lon     float64   `json:"lon"`
	Lat     float64   `json:"lat"`
	Cell    string    `json:"cell,omitempty"`
	Hotness float64   `json:"hotness,omitempty"`
	Matched bool      `json:"matched"`
	TS      time.Time `json:"ts"`
}

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	log     *slog.Logger
	stopped chan struct{}
	errDone chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("hitevents: create async producer: %w", err)
	}
	return NewPublisherWithProducer(prod, topic, queueSize, log), nil
}

// NewPublisherWithProducer wraps an existing producer. The publisher owns it
// and closes it on Close.
func NewPublisherWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		log:     log,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("hitevents marshal failed", "err", err)
				obs.IncHitEvent("error")
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Layer),
				Value: sarama.ByteEncoder(b),
			}
			obs.IncHitEvent("sent")
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("hitevents producer error", "err", err)
				obs.IncHitEvent("error")
			}
		}
	}()

	return p
}

// Publish enqueues ev without blocking. A full queue drops the event.
func (p *Publisher) Publish(ev Event) {
	select {
	case p.events <- ev:
	default:
		obs.IncHitEvent("dropped")
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("hitevents: close producer: %w", err)
	}
	<-p.errDone
	return nil
}
