package order

import (
	"time"

	"github.com/xiebiao/eshop/pkg/metrics"
)

// 指标辅助函数
// metrics.Init()未调用时(单元测试)所有观测都是no-op

func observeCheckout(result string) {
	if metrics.CheckoutTotal != nil {
		metrics.CheckoutTotal.WithLabelValues(result).Inc()
	}
}

func observeCheckoutDuration(d time.Duration) {
	if metrics.CheckoutDuration != nil {
		metrics.CheckoutDuration.Observe(d.Seconds())
	}
}

func observeTransition(toStatus, result string) {
	if metrics.OrderTransitionsTotal != nil {
		metrics.OrderTransitionsTotal.WithLabelValues(toStatus, result).Inc()
	}
}

func observeWebhook(result string) {
	if metrics.PaymentWebhooksTotal != nil {
		metrics.PaymentWebhooksTotal.WithLabelValues(result).Inc()
	}
}
