package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPublish(t *testing.T) {
	t.Parallel()
	m := metrics.New()
	pct := -1.5
	m.Publish(domain.CycleResult{
		Target:   "default",
		Outcome:  domain.OutcomeChangedAndSent,
		Duration: 1500,
		Snapshot: &domain.Snapshot{Primary: domain.Quote{BuyPrice: 2329000, SellPrice: 2401000}, Timestamp: 1700000000000},
		Change:   &domain.PriceChange{HasChanged: true, BuyPricePercent: &pct},
	})
	m.Publish(domain.CycleResult{Target: "default", Outcome: domain.OutcomeFatalError})

	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues("default", "changedAndSent")); got != 1 {
		t.Fatalf("changedAndSent = %v", got)
	}
	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues("default", "fatalError")); got != 1 {
		t.Fatalf("fatalError = %v", got)
	}
	if got := testutil.ToFloat64(m.BuyPrice.WithLabelValues("default")); got != 2329000 {
		t.Fatalf("buy = %v", got)
	}
	if got := testutil.ToFloat64(m.ChangePercent.WithLabelValues("default")); got != 1.5 {
		t.Fatalf("change = %v", got)
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()
	m := metrics.New()
	m.Publish(domain.CycleResult{Target: "default", Outcome: domain.OutcomeNoChange})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `silver_monitor_cycles_total{outcome="noChange",target="default"} 1`) {
		t.Fatalf("metric not exposed:\n%s", body)
	}
}
