// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 認証フローの結果とHTTPステータスを記録する。
type Collector struct {
	loginInitiated  prometheus.Counter
	callbackOutcome *prometheus.CounterVec
	exchangeLatency prometheus.Histogram
	accountsCreated prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginInitiated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_oauth_login_initiated_total",
			Help: "OAuthログイン開始の合計数",
		}),
		callbackOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobalert_oauth_callback_total",
			Help: "OAuthコールバックの結果別の合計数",
		}, []string{"outcome"}),
		exchangeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobalert_oauth_exchange_latency_seconds",
			Help:    "トークン交換のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_accounts_created_total",
			Help: "OAuthログイン経由で作成されたアカウントの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobalert_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginInitiated,
		c.callbackOutcome,
		c.exchangeLatency,
		c.accountsCreated,
		c.httpStatus,
	)

	return c
}

// RecordLoginInitiated はOAuthログイン開始を記録する。
func (c *Collector) RecordLoginInitiated() {
	c.loginInitiated.Inc()
}

// RecordCallbackOutcome はコールバックの結果を記録する。
// outcome: new_user, existing_user, invalid_state, exchange_error,
// identity_error, reconcile_error, session_error
func (c *Collector) RecordCallbackOutcome(outcome string) {
	c.callbackOutcome.WithLabelValues(outcome).Inc()
}

// RecordExchangeLatency はトークン交換のレイテンシを記録する。
func (c *Collector) RecordExchangeLatency(duration time.Duration) {
	c.exchangeLatency.Observe(duration.Seconds())
}

// RecordAccountCreated はアカウント作成を記録する。
func (c *Collector) RecordAccountCreated() {
	c.accountsCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
