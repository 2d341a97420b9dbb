package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/wherewolf/internal/core/config"
	"github.com/mohammed-shakir/wherewolf/internal/core/httpclient"
	"github.com/mohammed-shakir/wherewolf/internal/core/observability"
	"github.com/mohammed-shakir/wherewolf/internal/core/router"
	"github.com/mohammed-shakir/wherewolf/internal/core/server"
	"github.com/mohammed-shakir/wherewolf/internal/geocode"
	"github.com/mohammed-shakir/wherewolf/internal/geoip"
	"github.com/mohammed-shakir/wherewolf/internal/hitevents"
	"github.com/mohammed-shakir/wherewolf/internal/hotness/expdecay"
	"github.com/mohammed-shakir/wherewolf/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/wherewolf/internal/layersync"
	"github.com/mohammed-shakir/wherewolf/internal/logger"
	h3mapper "github.com/mohammed-shakir/wherewolf/internal/mapper/h3"
	"github.com/mohammed-shakir/wherewolf/internal/metrics"
	"github.com/mohammed-shakir/wherewolf/internal/source"
	"github.com/mohammed-shakir/wherewolf/internal/source/manifest"
	"github.com/mohammed-shakir/wherewolf/internal/source/pgsource"
	"github.com/mohammed-shakir/wherewolf/internal/source/redissource"
	"github.com/mohammed-shakir/wherewolf/internal/topology"
	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("config", "err", err)
		return 1
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "wherewolf",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)
	appLog.Info("starting wherewolf", "addr", cfg.Addr, "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})

	conv := topology.Converter{}
	store := wherewolf.New(wherewolf.WithTopologyConverter(conv))
	stats := func() { observability.SetLayerStats(store.Len(), store.FeatureCount()) }

	if b := cfg.SearchBounds; b != nil {
		if err := store.SetBounds(wherewolf.Bounds{{b[0], b[1]}, {b[2], b[3]}}); err != nil {
			appLog.Error("search bounds", "err", err)
			return 1
		}
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				appLog.Warn("close", "err", err)
			}
		}
	}()

	var loaders []source.Loader
	if cfg.LayerManifest != "" {
		m, err := manifest.ReadFile(cfg.LayerManifest)
		if err != nil {
			appLog.Error("layer manifest", "err", err)
			return 1
		}
		loaders = append(loaders, m)
	}
	if cfg.PGDSN != "" {
		pg, err := pgsource.Open(cfg.PGDSN, cfg.PGTable)
		if err != nil {
			appLog.Error("postgres", "err", err)
			return 1
		}
		closers = append(closers, pg)
		if err := pg.EnsureSchema(ctx); err != nil {
			appLog.Error("postgres schema", "err", err)
			return 1
		}
		loaders = append(loaders, pg)
	}

	var docs *redissource.Store
	if cfg.RedisEnabled {
		docs, err = redissource.New(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			appLog.Error("redis", "err", err)
			return 1
		}
		closers = append(closers, docs)
		loaders = append(loaders, docs)
	}

	if err := source.LoadInto(ctx, store, conv, appLog, loaders...); err != nil {
		// partial loads still serve; the failures are logged per document
		appLog.Warn("some layers failed to load", "err", err)
	}
	stats()
	appLog.Info("layers ready", "layers", store.LayerNames(), "features", store.FeatureCount())

	deps := router.Deps{
		Store:   store,
		Decoder: conv,
		Mapper:  h3mapper.New(),
		H3Res:   cfg.H3Res,
	}

	if cfg.Geocoder.URL != "" {
		nom, err := geocode.NewNominatim(geocode.Config{
			BaseURL:        cfg.Geocoder.URL,
			UserAgent:      cfg.Geocoder.UserAgent,
			RequestsPerSec: cfg.Geocoder.RPS,
			CacheSize:      cfg.Geocoder.CacheSize,
		}, httpclient.NewOutbound(cfg.Geocoder.Timeout), appLog)
		if err != nil {
			appLog.Error("geocoder", "err", err)
			return 1
		}
		finder, err := geocode.NewFinder(store, nom)
		if err != nil {
			appLog.Error("geocoder", "err", err)
			return 1
		}
		deps.Finder = finder
	}

	if cfg.GeoIPDB != "" {
		loc, err := geoip.Open(cfg.GeoIPDB)
		if err != nil {
			appLog.Error("geoip", "err", err)
			return 1
		}
		closers = append(closers, loc)
		deps.GeoIP = loc
	}

	tracker := expdecay.New(cfg.HotHalfLife)
	go pruneLoop(ctx, tracker, cfg.HotHalfLife)
	hot := metricswrap.New(tracker, cfg.HotThreshold, 0.01, appLog)

	var sink hitevents.Sink
	if cfg.HitEventsEnabled {
		pub, err := hitevents.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.HitsTopic, cfg.HitEventsQueue, appLog)
		if err != nil {
			appLog.Error("hit events", "err", err)
			return 1
		}
		closers = append(closers, pub)
		sink = pub
	}
	deps.Hits = hitevents.NewRecorder(deps.Mapper, hot, sink, cfg.H3Res, appLog)

	if cfg.LayerSyncEnabled {
		if docs == nil {
			appLog.Error("layer sync needs REDIS_ENABLED=true")
			return 1
		}
		ann, err := layersync.NewAnnouncer(cfg.Kafka.Brokers, cfg.Kafka.LayerTopic)
		if err != nil {
			appLog.Error("layer announcer", "err", err)
			return 1
		}
		closers = append(closers, ann)
		deps.Replicator = layersync.NewReplicator(docs, ann)

		// every replica must see every event, so each gets its own group
		groupID := cfg.Kafka.GroupID
		if host, err := os.Hostname(); err == nil && host != "" {
			groupID += "-" + host
		}
		syncLog := zl.With().Str("component", "layersync").Logger()
		consumer := layersync.New(layersync.Config{
			Brokers:             cfg.Kafka.Brokers,
			Topic:               cfg.Kafka.LayerTopic,
			GroupID:             groupID,
			InitialOffsetOldest: false,
		}, appLog, store, docs, conv, layersync.WithOnChange(stats), layersync.WithZerolog(&syncLog))
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLog.Error("layer sync stopped", "err", err)
			}
		}()
	}

	h := server.Handler(appLog, deps, p.Handler())
	if err := server.Run(ctx, cfg, appLog, h); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// pruneLoop drops keys whose score decayed below a hundredth of a hit.
func pruneLoop(ctx context.Context, t *expdecay.Tracker, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.Prune(0.01)
		}
	}
}
