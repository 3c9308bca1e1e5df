// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// キオスクサービスやワーカーから利用する。
type MetricsCollector interface {
	RecordScan(outcome string)
	RecordTransition(action string)
	RecordTransitionConflict()
	RecordResolveLatency(duration time.Duration)
	RecordRosterSize(count int)
	RecordHTTPStatus(statusCode int)
	RecordSweptOutpasses(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	scans              *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	transitionConflict prometheus.Counter
	resolveLatency     prometheus.Histogram
	rosterSize         prometheus.Gauge
	httpStatus         *prometheus.CounterVec
	sweptOutpasses     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelman_gate_scans_total",
			Help: "ゲートキオスク検索の結果別合計数",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelman_gate_transitions_total",
			Help: "ゲート打刻（OUT/IN）の合計数",
		}, []string{"action"}),
		transitionConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostelman_gate_transition_conflicts_total",
			Help: "CAS条件不成立で拒否された打刻の合計数",
		}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostelman_gate_resolve_latency_seconds",
			Help:    "寮生解決のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		rosterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hostelman_roster_size",
			Help: "名簿キャッシュに保持している寮生数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sweptOutpasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostelman_swept_outpasses_total",
			Help: "スイープでcompletedに遷移させた許可証の合計数",
		}),
	}

	reg.MustRegister(
		c.scans,
		c.transitions,
		c.transitionConflict,
		c.resolveLatency,
		c.rosterSize,
		c.httpStatus,
		c.sweptOutpasses,
	)

	return c
}

// RecordScan は検索結果を記録する。outcomeは resolved/ambiguous/not_found/error。
func (c *Collector) RecordScan(outcome string) {
	c.scans.WithLabelValues(outcome).Inc()
}

// RecordTransition はゲート打刻を記録する。actionは OUT/IN。
func (c *Collector) RecordTransition(action string) {
	c.transitions.WithLabelValues(action).Inc()
}

// RecordTransitionConflict はCAS条件不成立による打刻拒否を記録する。
func (c *Collector) RecordTransitionConflict() {
	c.transitionConflict.Inc()
}

// RecordResolveLatency は寮生解決のレイテンシを記録する。
func (c *Collector) RecordResolveLatency(duration time.Duration) {
	c.resolveLatency.Observe(duration.Seconds())
}

// RecordRosterSize は名簿キャッシュの寮生数を記録する。
func (c *Collector) RecordRosterSize(count int) {
	c.rosterSize.Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSweptOutpasses はスイープで処理した許可証数を記録する。
func (c *Collector) RecordSweptOutpasses(count int) {
	c.sweptOutpasses.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
