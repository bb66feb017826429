package metrics

import (
	"net/http"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/changes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the monitoring pipeline.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal   *prometheus.CounterVec   // labels: target, outcome
	CycleDuration *prometheus.HistogramVec // labels: target
	BuyPrice      *prometheus.GaugeVec     // labels: target
	SellPrice     *prometheus.GaugeVec     // labels: target
	ChangePercent *prometheus.GaugeVec     // labels: target
	LastSuccess   *prometheus.GaugeVec     // labels: target
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "silver_monitor_cycles_total",
			Help: "Monitoring cycles by terminal outcome",
		}, []string{"target", "outcome"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "silver_monitor_cycle_duration_seconds",
			Help:    "Wall time of one monitoring cycle",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"target"}),
		BuyPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "silver_monitor_buy_price",
			Help: "Last observed buy price of the tracked product",
		}, []string{"target"}),
		SellPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "silver_monitor_sell_price",
			Help: "Last observed sell price of the tracked product (0 = no offer)",
		}, []string{"target"}),
		ChangePercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "silver_monitor_change_percent",
			Help: "Largest absolute percent change detected by the last cycle",
		}, []string{"target"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "silver_monitor_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that persisted a snapshot",
		}, []string{"target"}),
	}
	m.registry.MustRegister(
		m.CyclesTotal, m.CycleDuration, m.BuyPrice, m.SellPrice, m.ChangePercent, m.LastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Publish records one cycle result.
func (m *Metrics) Publish(res domain.CycleResult) {
	m.CyclesTotal.WithLabelValues(res.Target, string(res.Outcome)).Inc()
	m.CycleDuration.WithLabelValues(res.Target).Observe(float64(res.Duration) / 1000)

	if res.Snapshot != nil {
		m.BuyPrice.WithLabelValues(res.Target).Set(float64(res.Snapshot.Primary.BuyPrice))
		m.SellPrice.WithLabelValues(res.Target).Set(float64(res.Snapshot.Primary.SellPrice))
		m.LastSuccess.WithLabelValues(res.Target).Set(float64(res.Snapshot.Timestamp) / 1000)
	}
	if res.Change != nil {
		m.ChangePercent.WithLabelValues(res.Target).Set(changes.MaxAbsPercent(*res.Change))
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
