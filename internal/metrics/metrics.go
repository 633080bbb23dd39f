// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder は認証フローのメトリクス収集インターフェース。
// ハンドラー層から利用する。
type Recorder interface {
	RecordRegistration()
	RecordLogin(outcome string)
	RecordOAuthLogin()
	RecordOTPIssued()
	RecordOTPValidation(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations  prometheus.Counter
	logins         *prometheus.CounterVec
	oauthLogins    prometheus.Counter
	otpIssued      prometheus.Counter
	otpValidations *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_registrations_total",
			Help: "ユーザー登録成功の合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_logins_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"outcome"}),
		oauthLogins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_oauth_logins_total",
			Help: "Google OAuth経由ログイン成功の合計数",
		}),
		otpIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_otp_issued_total",
			Help: "発行されたワンタイムパスコードの合計数",
		}),
		otpValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_otp_validations_total",
			Help: "ワンタイムパスコード検証の結果別合計数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authgate_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.oauthLogins,
		c.otpIssued,
		c.otpValidations,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordRegistration は登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLogin はログイン試行の結果を記録する。
// outcomeは"success"、"invalid_credentials"、"not_found"のいずれか。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordOAuthLogin はOAuth経由のログイン成功を記録する。
func (c *Collector) RecordOAuthLogin() {
	c.oauthLogins.Inc()
}

// RecordOTPIssued はパスコード発行を記録する。
func (c *Collector) RecordOTPIssued() {
	c.otpIssued.Inc()
}

// RecordOTPValidation はパスコード検証の結果を記録する。
// outcomeは"success"または"invalid"。
func (c *Collector) RecordOTPValidation(outcome string) {
	c.otpValidations.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
