// Package metrics 提供基于Prometheus的业务指标
//
// 指标命名规范：
// - Counter以_total结尾（orders_checkout_total）
// - Histogram以单位结尾（checkout_duration_seconds）
// - 标签只用低基数维度（status、result），不要用order_id/user_id
//
// 使用方式：
// 1. main中调用metrics.Init()注册指标
// 2. gin路由挂载promhttp.Handler()暴露/metrics
// 3. 业务代码直接操作导出的指标变量
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initialized 标记是否已初始化（防止重复注册）
	initialized bool

	// HTTP请求指标

	// HTTPRequestsTotal HTTP请求总数，标签：method、path、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时分布
	HTTPRequestDuration *prometheus.HistogramVec

	// 下单链路指标

	// CheckoutTotal checkout结果计数，标签result：success|out_of_stock|payment_error|validation
	CheckoutTotal *prometheus.CounterVec

	// CheckoutDuration checkout耗时分布
	CheckoutDuration prometheus.Histogram

	// OrderTransitionsTotal 订单状态流转计数，标签：to_status、result
	OrderTransitionsTotal *prometheus.CounterVec

	// 支付回调指标

	// PaymentWebhooksTotal 支付回调计数，标签result：confirmed|duplicate|amount_mismatch|bad_signature|not_found
	PaymentWebhooksTotal *prometheus.CounterVec

	// 调度器指标

	// SchedulerSweepsTotal 调度器扫描计数，标签：sweep（expire_unpaid|auto_confirm）
	SchedulerSweepsTotal *prometheus.CounterVec

	// SchedulerProcessedOrders 单次扫描处理的订单数，标签：sweep
	SchedulerProcessedOrders *prometheus.CounterVec

	// 熔断器指标

	// CircuitBreakerState 熔断器状态：0=CLOSED 1=OPEN 2=HALF_OPEN，标签：name
	CircuitBreakerState *prometheus.GaugeVec
)

// Init 注册所有指标
// 重复调用是安全的（第二次起为no-op）
func Init() {
	if initialized {
		return
	}
	initialized = true

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP请求总数",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP请求耗时",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
	}, []string{"method", "path"})

	CheckoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_checkout_total",
		Help: "checkout结果计数",
	}, []string{"result"})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "checkout耗时",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "订单状态流转计数",
	}, []string{"to_status", "result"})

	PaymentWebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "支付回调处理结果计数",
	}, []string{"result"})

	SchedulerSweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_sweeps_total",
		Help: "调度器扫描次数",
	}, []string{"sweep"})

	SchedulerProcessedOrders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_processed_orders_total",
		Help: "调度器处理的订单总数",
	}, []string{"sweep"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "熔断器状态（0=CLOSED 1=OPEN 2=HALF_OPEN）",
	}, []string{"name"})
}
