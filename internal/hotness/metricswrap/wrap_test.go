package metricswrap

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/wherewolf/internal/core/observability"
	"github.com/mohammed-shakir/wherewolf/internal/hotness/expdecay"
	"github.com/mohammed-shakir/wherewolf/internal/metrics"
)

func Test_HotKeysGauge_Updates(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)

	w := New(expdecay.New(30*time.Second), 0, 0, nil)
	w.Inc("states/cellA")
	w.Inc("states/cellB")
	w.Reset("states/cellA")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	body := rr.Body.String()

	if !strings.Contains(body, "wherewolf_hot_keys 1") {
		t.Fatalf("expected hot keys gauge == 1, got:\n%s", body)
	}
}

func TestThresholdLogging(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := New(expdecay.NewWithClock(time.Hour, func() time.Time { return fixed }), 2, 1, log)

	w.Inc("k")
	if buf.Len() != 0 {
		t.Fatalf("logged below threshold: %s", buf.String())
	}
	w.Inc("k")
	if !strings.Contains(buf.String(), "hotness_threshold") {
		t.Fatalf("expected threshold log, got %q", buf.String())
	}
	if top := w.Top(1); len(top) != 1 || top[0].Key != "k" {
		t.Fatalf("top=%v", top)
	}
}

func TestShouldLogSampling(t *testing.T) {
	if shouldLog(0, "k") || !shouldLog(1, "k") {
		t.Fatalf("sample bounds not honoured")
	}
	if shouldLog(0.5, "k") != shouldLog(0.5, "k") {
		t.Fatalf("sampling must be deterministic per key")
	}
}

func TestThresholdLogging_RealClockDecay(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	w := New(expdecay.New(time.Hour), 1.5, 1, log)

	w.Inc("k")
	if score := w.Inc("k"); score >= 2 || score < 1.5 {
		t.Fatalf("score=%v want in [1.5,2)", score)
	}
	if !strings.Contains(buf.String(), "hotness_threshold") {
		t.Fatalf("expected threshold log, got %q", buf.String())
	}
}
