// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type KafkaCfg struct {
	Brokers    []string
	LayerTopic string
	GroupID    string
	HitsTopic  string
}

type GeocoderCfg struct {
	URL       string
	UserAgent string
	RPS       float64
	Timeout   time.Duration
	CacheSize int
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool
	LogSampleN int

	LayerManifest string
	RedisAddr     string
	RedisEnabled  bool
	RedisPrefix   string
	PGDSN         string
	PGTable       string

	Kafka             KafkaCfg
	LayerSyncEnabled  bool
	HitEventsEnabled  bool
	HitEventsQueue    int
	Geocoder          GeocoderCfg
	GeoIPDB           string
	H3Res             int
	HotHalfLife       time.Duration
	HotThreshold      float64
	SearchBounds      *[4]float64
	MetricsEnabled    bool
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// Load reads the given dotenv files (".env" when none are named) into the
// process environment and then calls FromEnv. Missing files are ignored;
// variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	res := getint("H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),

		LayerManifest: getenv("LAYER_MANIFEST", ""),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisEnabled:  getbool("REDIS_ENABLED", false),
		RedisPrefix:   getenv("REDIS_PREFIX", "wherewolf"),
		PGDSN:         getenv("PG_DSN", ""),
		PGTable:       getenv("PG_TABLE", "layers"),

		Kafka: KafkaCfg{
			Brokers:    splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			LayerTopic: getenv("KAFKA_LAYER_TOPIC", "wherewolf.layers"),
			GroupID:    getenv("KAFKA_GROUP_ID", "wherewolf"),
			HitsTopic:  getenv("KAFKA_HITS_TOPIC", "wherewolf.hits"),
		},
		LayerSyncEnabled: getbool("LAYER_SYNC_ENABLED", false),
		HitEventsEnabled: getbool("HIT_EVENTS_ENABLED", false),
		HitEventsQueue:   getint("HIT_EVENTS_QUEUE", 1024),

		Geocoder: GeocoderCfg{
			URL:       getenv("GEOCODER_URL", ""),
			UserAgent: getenv("GEOCODER_USER_AGENT", "wherewolf"),
			RPS:       getfloat("GEOCODER_RPS", 1),
			Timeout:   getduration("GEOCODER_TIMEOUT", 10*time.Second),
			CacheSize: getint("GEOCODER_CACHE_SIZE", 512),
		},
		GeoIPDB:           getenv("GEOIP_DB", ""),
		H3Res:             res,
		HotHalfLife:       getduration("HOT_HALF_LIFE", time.Minute),
		HotThreshold:      getfloat("HOT_THRESHOLD", 10.0),
		SearchBounds:      parseBounds(getenv("SEARCH_BOUNDS", "")),
		MetricsEnabled:    getbool("METRICS_ENABLED", true),
		ShutdownTimeout:   getduration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ReadHeaderTimeout: getduration("READ_HEADER_TIMEOUT", 5*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parse "minLng,minLat,maxLng,maxLat"; anything malformed means unset
func parseBounds(s string) *[4]float64 {
	parts := splitList(s)
	if len(parts) != 4 {
		return nil
	}
	var b [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil
		}
		b[i] = f
	}
	return &b
}
