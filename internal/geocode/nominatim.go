package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/wherewolf/internal/core/observability"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type Config struct {
	BaseURL        string
	UserAgent      string
	RequestsPerSec float64
	Limit          int
	CacheSize      int
}

// Nominatim is a Geocoder backed by the OSM Nominatim search API. Calls are
// rate limited and successful answers are cached by address and view box.
type Nominatim struct {
	baseURL   string
	userAgent string
	limit     int
	client    *http.Client
	limiter   *rate.Limiter
	cache     *lru.Cache[uint64, []Candidate]
	log       *slog.Logger
}

func NewNominatim(cfg Config, client *http.Client, log *slog.Logger) (*Nominatim, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNominatimURL
	}
	if cfg.UserAgent == "" {
		return nil, errors.New("nominatim: user agent is required")
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 1
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	n := &Nominatim{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limit:     cfg.Limit,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		log:       log,
	}
	if cfg.CacheSize > 0 {
		c, err := lru.New[uint64, []Candidate](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("nominatim cache: %w", err)
		}
		n.cache = c
	}
	return n, nil
}

func cacheKey(q Query) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strings.ToLower(strings.TrimSpace(q.Address)))
	if q.ViewBox != nil {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(q.ViewBox.Param)
	}
	return d.Sum64()
}

func (n *Nominatim) Geocode(ctx context.Context, q Query) ([]Candidate, error) {
	if strings.TrimSpace(q.Address) == "" {
		return nil, errors.New("nominatim: empty address")
	}
	key := cacheKey(q)
	if n.cache != nil {
		if c, ok := n.cache.Get(key); ok {
			observability.ObserveGeocode("cached", 0)
			return c, nil
		}
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("nominatim rate limit: %w", err)
	}

	start := time.Now()
	cands, err := n.search(ctx, q)
	dur := time.Since(start).Seconds()
	switch {
	case err != nil:
		observability.ObserveGeocode("error", dur)
		n.log.Warn("nominatim search failed", "err", err)
		return nil, err
	case len(cands) == 0:
		observability.ObserveGeocode("empty", dur)
	default:
		observability.ObserveGeocode("ok", dur)
	}
	if n.cache != nil {
		n.cache.Add(key, cands)
	}
	return cands, nil
}

func (n *Nominatim) search(ctx context.Context, q Query) ([]Candidate, error) {
	params := url.Values{
		"q":      {q.Address},
		"format": {"jsonv2"},
		"limit":  {strconv.Itoa(n.limit)},
	}
	if q.ViewBox != nil {
		params.Set("viewbox", q.ViewBox.Param)
	}
	u := n.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim do: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var places []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("nominatim decode: %w", err)
	}

	out := make([]Candidate, 0, len(places))
	for i, p := range places {
		lat, err := strconv.ParseFloat(p.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("nominatim place %d lat: %w", i, err)
		}
		lon, err := strconv.ParseFloat(p.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("nominatim place %d lon: %w", i, err)
		}
		out = append(out, Candidate{Point: orb.Point{lon, lat}, Label: p.DisplayName})
	}
	return out, nil
}
