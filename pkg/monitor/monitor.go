package monitor

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics 管理端 HTTP 指标
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

var (
	// HTTP 由 Init 创建，未初始化时中间件只透传
	HTTP *HTTPMetrics

	initOnce sync.Once
)

// NewHTTPMetrics 在指定 Registerer 上创建 HTTP 指标
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	f := promauto.With(reg)
	return &HTTPMetrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_http_requests_total",
			Help: "Admin HTTP requests by route and status",
		}, []string{"method", "path", "status"}),
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "payout_http_request_duration_seconds",
			Help: "Admin HTTP request latency",
			// POST /payout-runs 同步执行整批结算，上限放宽到 30 分钟
			Buckets: []float64{0.05, 0.25, 1, 5, 30, 120, 600, 1800},
		}, []string{"method", "path"}),
	}
}

// Init 在默认 Registry 上注册全部指标 (可重复调用)
func Init() {
	initOnce.Do(func() {
		HTTP = NewHTTPMetrics(prometheus.DefaultRegisterer)
		Business = newPayoutMetrics(prometheus.DefaultRegisterer)
	})
}

// Handler /metrics 暴露端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// PrometheusMiddleware 按路由模板记录请求量与耗时
func PrometheusMiddleware() gin.HandlerFunc {
	return HTTP.Middleware()
}

// Middleware 对 nil 接收者安全
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		// 未匹配的路由 (404) 不记录，避免任意路径撑爆标签
		path := c.FullPath()
		if path == "" {
			return
		}
		m.Requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.Latency.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
