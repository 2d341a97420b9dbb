package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

func TestNominatimSearch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/search" {
			t.Errorf("path=%s want /search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "10 Downing St" || q.Get("format") != "jsonv2" || q.Get("viewbox") != "-1,52,1,51" {
			t.Errorf("query=%v", q)
		}
		if r.Header.Get("User-Agent") != "wherewolf-test" {
			t.Errorf("user agent=%q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"51.5034","lon":"-0.1276","display_name":"10 Downing Street"}]`))
	}))
	defer srv.Close()

	n, err := NewNominatim(Config{BaseURL: srv.URL + "/", UserAgent: "wherewolf-test", RequestsPerSec: 1000, CacheSize: 8}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewNominatim: %v", err)
	}
	q := Query{Address: "10 Downing St", ViewBox: NewViewBox(wherewolf.Bounds{{-1, 51}, {1, 52}})}

	for range 2 {
		cands, err := n.Geocode(context.Background(), q)
		if err != nil {
			t.Fatalf("Geocode: %v", err)
		}
		if len(cands) != 1 || cands[0].Point != (orb.Point{-0.1276, 51.5034}) || cands[0].Label != "10 Downing Street" {
			t.Fatalf("cands=%+v", cands)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("upstream calls=%d want 1 (second answer cached)", got)
	}
}

func TestNominatimStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n, _ := NewNominatim(Config{BaseURL: srv.URL, UserAgent: "t", RequestsPerSec: 1000}, srv.Client(), nil)
	_, err := n.Geocode(context.Background(), Query{Address: "x"})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests || se.Body != "slow down" {
		t.Fatalf("err=%v want StatusError 429", err)
	}
}

func TestNominatimBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"1"}]`))
	}))
	defer srv.Close()

	n, _ := NewNominatim(Config{BaseURL: srv.URL, UserAgent: "t", RequestsPerSec: 1000}, srv.Client(), nil)
	if _, err := n.Geocode(context.Background(), Query{Address: "x"}); err == nil {
		t.Fatalf("expected lat parse error")
	}
}

func TestNominatimConfig(t *testing.T) {
	if _, err := NewNominatim(Config{}, nil, nil); err == nil {
		t.Fatalf("expected error without user agent")
	}
	n, _ := NewNominatim(Config{UserAgent: "t"}, nil, nil)
	if _, err := n.Geocode(context.Background(), Query{Address: "  "}); err == nil {
		t.Fatalf("expected error for blank address")
	}
}

func TestNominatimHonoursContext(t *testing.T) {
	n, _ := NewNominatim(Config{UserAgent: "t", RequestsPerSec: 0.001}, nil, nil)
	n.limiter.Allow() // drain the only token
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := n.Geocode(ctx, Query{Address: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}
