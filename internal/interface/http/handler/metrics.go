package handler

import "github.com/xiebiao/eshop/pkg/metrics"

// observeWebhookRejected 回调拒绝计数
// metrics.Init()未调用时(单元测试)为no-op
func observeWebhookRejected(result string) {
	if metrics.PaymentWebhooksTotal == nil {
		return
	}
	metrics.PaymentWebhooksTotal.WithLabelValues(result).Inc()
}
