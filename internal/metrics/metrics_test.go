package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProvider_RegistersStandardCollectors_AndBuildInfo(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test", Revision: "r", BuildDate: "now"}})

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)

	if n := testutil.CollectAndCount(g); n == 0 {
		t.Fatalf("expected at least 1 sample from test_gauge, got %d", n)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()

	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go_goroutines in payload; got:\n%s", body)
	}
	if !strings.Contains(body, `wherewolf_build_info{`) {
		t.Fatalf("expected wherewolf_build_info in payload; got:\n%s", body)
	}
	if strings.Contains(body, "wherewolf_find_total") {
		t.Fatalf("service collectors must not be registered when disabled")
	}
}

func TestProvider_DefaultPath(t *testing.T) {
	if got := Init(Config{}).Path(); got != "/metrics" {
		t.Fatalf("path=%q want /metrics", got)
	}
	if got := Init(Config{Path: "/prom"}).Path(); got != "/prom" {
		t.Fatalf("path=%q want /prom", got)
	}
}
