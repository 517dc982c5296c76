package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// PayoutMetrics 定义结算业务监控指标
// 所有方法对 nil 接收者安全，未调用 Init 时 (如单元测试) 指标记录为空操作
type PayoutMetrics struct {
	RunsTotal            *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	OutcomesTotal        *prometheus.CounterVec
	PaidAmountTotal      *prometheus.CounterVec
	GatewayDuration      *prometheus.HistogramVec
	GatewayErrorsTotal   *prometheus.CounterVec
	StuckReservations    prometheus.Gauge
	OutboxPublishedTotal *prometheus.CounterVec
}

// Business Global Metrics Instance
var Business *PayoutMetrics

// NewPayoutMetrics 在指定 Registerer 上创建指标 (测试可传入独立 Registry)
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	return newPayoutMetrics(reg)
}

func newPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	f := promauto.With(reg)
	return &PayoutMetrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_runs_total",
			Help: "Number of payout batch runs by trigger and result",
		}, []string{"trigger", "result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "payout_run_duration_seconds",
			Help:    "Duration of payout batch runs",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800},
		}),
		OutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_outcomes_total",
			Help: "Per-creator payout outcomes",
		}, []string{"status"}),
		PaidAmountTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_paid_amount_total",
			Help: "Total amount moved to creators by processed payouts",
		}, []string{"currency"}),
		GatewayDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payout_gateway_request_duration_seconds",
			Help:    "Latency of payout gateway requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		GatewayErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_gateway_errors_total",
			Help: "Payout gateway errors by classification",
		}, []string{"operation", "kind"}),
		StuckReservations: f.NewGauge(prometheus.GaugeOpts{
			Name: "payout_stuck_reservations",
			Help: "Pending reservations that exceeded the recovery attempt budget in the last run",
		}),
		OutboxPublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_outbox_published_total",
			Help: "Outbox messages relayed to the broker",
		}, []string{"topic", "result"}),
	}
}

// ObserveRun 记录一次批处理运行
func (m *PayoutMetrics) ObserveRun(trigger, result string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(trigger, result).Inc()
	m.RunDuration.Observe(seconds)
}

// ObserveOutcome 记录单个创作者的结算结果
func (m *PayoutMetrics) ObserveOutcome(status string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(status).Inc()
}

// AddPaid 累计已打款金额
func (m *PayoutMetrics) AddPaid(currency string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	f, _ := amount.Float64()
	m.PaidAmountTotal.WithLabelValues(currency).Add(f)
}

// ObserveGateway 记录网关调用耗时，kind 为空表示成功
func (m *PayoutMetrics) ObserveGateway(operation, kind string, seconds float64) {
	if m == nil {
		return
	}
	m.GatewayDuration.WithLabelValues(operation).Observe(seconds)
	if kind != "" {
		m.GatewayErrorsTotal.WithLabelValues(operation, kind).Inc()
	}
}

// SetStuck 设置卡住的预留记录数量
func (m *PayoutMetrics) SetStuck(n int) {
	if m == nil {
		return
	}
	m.StuckReservations.Set(float64(n))
}

// ObserveOutbox 记录 Outbox 投递结果
func (m *PayoutMetrics) ObserveOutbox(topic string, ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "error"
	}
	m.OutboxPublishedTotal.WithLabelValues(topic, result).Inc()
}
