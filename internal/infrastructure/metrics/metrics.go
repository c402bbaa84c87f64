package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"

	sessionApp "storefront/internal/application/session"
	sessionDomain "storefront/internal/domain/session"
)

// Registry 集中註冊 storefront 的 Prometheus 指標。
type Registry struct {
	reg *prometheus.Registry

	sessionStates   *prometheus.GaugeVec
	stateChanges    *prometheus.CounterVec
	forcedLogouts   prometheus.Counter
	httpRequests    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRegistry 建立並註冊全部指標。
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{
		reg: reg,
		sessionStates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "session",
			Name:      "states",
			Help:      "Current number of tracked sessions per lifecycle state.",
		}, []string{"state"}),
		stateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "session",
			Name:      "state_changes_total",
			Help:      "Session lifecycle state transitions.",
		}, []string{"state"}),
		forcedLogouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "session",
			Name:      "forced_logouts_total",
			Help:      "Sessions terminated by the idle-timeout mechanism.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	return r
}

// SessionStateChanged 實作 session Sink，累計狀態轉換次數。
func (r *Registry) SessionStateChanged(ev sessionApp.Event) {
	r.stateChanges.WithLabelValues(string(ev.Status.State)).Inc()
	if ev.Status.State == sessionDomain.StateExpired {
		r.forcedLogouts.Inc()
	}
}

// SetSessionStates 覆寫目前的會話狀態分佈，由定期統計呼叫。
func (r *Registry) SetSessionStates(active, warning, expired int) {
	r.sessionStates.WithLabelValues(string(sessionDomain.StateActive)).Set(float64(active))
	r.sessionStates.WithLabelValues(string(sessionDomain.StateWarning)).Set(float64(warning))
	r.sessionStates.WithLabelValues(string(sessionDomain.StateExpired)).Set(float64(expired))
}

// ObserveRequest 累計 HTTP 請求計數與延遲。
func (r *Registry) ObserveRequest(method, path, status string, seconds float64) {
	r.httpRequests.WithLabelValues(method, path, status).Inc()
	r.requestDuration.WithLabelValues(method, path).Observe(seconds)
}

// Handler 回傳 /metrics 的 gin handler。
func (r *Registry) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
