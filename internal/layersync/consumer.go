// Package layersync keeps a wherewolf store in step with layer documents
// held in a shared repository, driven by change events on a Kafka topic.
package layersync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	obs "github.com/mohammed-shakir/wherewolf/internal/core/observability"
	mylog "github.com/mohammed-shakir/wherewolf/internal/logger"
	"github.com/mohammed-shakir/wherewolf/internal/source"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

// DocumentGetter fetches the current document of a layer. It returns
// source.ErrNotFound for unknown layers.
type DocumentGetter interface {
	Get(ctx context.Context, name string) (source.Document, error)
}

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	DedupeSize          int
}

func (c Config) withDefaults() Config {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 3 * time.Second
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	return c
}

type Option func(*Consumer)

// WithOnChange runs fn after every event that changed the store.
func WithOnChange(fn func()) Option {
	return func(c *Consumer) { c.onChange = fn }
}

func WithZerolog(zl *zerolog.Logger) Option {
	return func(c *Consumer) { c.zlog = zl }
}

type Consumer struct {
	cfg      Config
	logger   *slog.Logger
	zlog     *zerolog.Logger
	store    *wherewolf.Store
	docs     DocumentGetter
	dec      wherewolf.TopologyDecoder
	dedupe   *revDedupe
	onChange func()
}

func New(cfg Config, logger *slog.Logger, store *wherewolf.Store, docs DocumentGetter, dec wherewolf.TopologyDecoder, opts ...Option) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	c := &Consumer{
		cfg:    cfg,
		logger: logger,
		store:  store,
		docs:   docs,
		dec:    dec,
		dedupe: newRevDedupe(cfg.DedupeSize),
	}
	for _, o := range opts {
		o(c)
	}
	if c.zlog == nil {
		zl := mylog.Build(mylog.Config{Component: "layersync"}, nil)
		c.zlog = &zl
	}
	return c
}

// Start consumes until ctx is cancelled. Consume errors are logged and the
// group rejoins after a short pause.
func (c *Consumer) Start(ctx context.Context) error {
	if c.store == nil || c.docs == nil {
		return errors.New("layersync: missing dependencies (store/documents)")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("layer sync consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil && ctx.Err() == nil {
			c.logger.Error("consumer error", "err", err)
			c.zlog.Error().Err(err).
				Strs("brokers", c.cfg.Brokers).
				Str("topic", c.cfg.Topic).
				Msg("kafka consumer error")
		}
		select {
		case <-ctx.Done():
			c.logger.Info("layer sync consumer shutting down")
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

// ProcessOne applies a single event. Malformed events, stale revisions and
// documents the store rejects are skipped so they cannot wedge the partition;
// repository failures are returned and the message is retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	zl := mylog.FromContext(mylog.WithComponent(ctx, "layersync"), c.zlog)

	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncLayerEvent("unknown", "decode_error")
		zl.Error().Err(err).
			Str("kind", "decode").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("kafka error")
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncLayerEvent(ev.Op, "invalid")
		c.logger.Warn("invalid layer event", "err", err, "offset", msg.Offset)
		return nil
	}
	if c.dedupe.stale(ev.Layer, ev.Rev) {
		obs.IncLayerEvent(ev.Op, "duplicate")
		c.logger.Debug("stale layer event (skipping)", "layer", ev.Layer, "rev", ev.Rev)
		return nil
	}

	switch ev.Op {
	case OpDelete:
		c.store.RemoveLayer(ev.Layer)
	case OpUpsert:
		skip, err := c.upsert(ctx, ev)
		if err != nil {
			obs.IncLayerEvent(ev.Op, "error")
			zl.Error().Err(err).Str("layer", ev.Layer).Uint64("rev", ev.Rev).Msg("layer upsert failed")
			return err
		}
		if skip != "" {
			obs.IncLayerEvent(ev.Op, skip)
			return nil
		}
	}

	c.dedupe.commit(ev.Layer, ev.Rev)
	obs.IncLayerEvent(ev.Op, "applied")
	zl.Info().Str("event", "layer_sync").Str("op", ev.Op).
		Str("layer", ev.Layer).Uint64("rev", ev.Rev).Msg("layer event applied")
	if c.onChange != nil {
		c.onChange()
	}
	return nil
}

// upsert returns a non-empty outcome when the event is dropped.
func (c *Consumer) upsert(ctx context.Context, ev Event) (string, error) {
	doc, err := c.docs.Get(ctx, ev.Layer)
	if errors.Is(err, source.ErrNotFound) {
		c.logger.Warn("layer document missing", "layer", ev.Layer, "rev", ev.Rev)
		return "missing", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch layer %q: %w", ev.Layer, err)
	}
	if !doc.All {
		doc.Name = ev.Layer
	}
	if err := source.Apply(c.store, c.dec, doc); err != nil {
		if errors.Is(err, wherewolf.ErrInvalidInput) {
			c.logger.Warn("layer document rejected", "layer", ev.Layer, "err", err)
			return "rejected", nil
		}
		return "", err
	}
	return "", nil
}
