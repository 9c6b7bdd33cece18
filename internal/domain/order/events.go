package order

import (
	"context"
	"time"
)

// 订单生命周期事件类型
const (
	EventCreated          = "order.created"
	EventStatusChanged    = "order.status_changed"
	EventPaymentConfirmed = "order.payment_confirmed"
	EventAssigned         = "order.assigned"
)

// Event 订单生命周期事件
// 下游消费方(通知、报表、ERP同步)自行订阅感兴趣的routing key
type Event struct {
	Type       string      `json:"type"`
	OrderID    uint        `json:"order_id"`
	OrderNo    string      `json:"order_no"`
	UserID     uint        `json:"user_id"`
	FromStatus OrderStatus `json:"from_status,omitempty"`
	ToStatus   OrderStatus `json:"to_status"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Notifier 事件发布端口
// 约定:发布失败不影响业务结果,实现方只记日志(事件是尽力而为的旁路)
type Notifier interface {
	Notify(ctx context.Context, event Event)
}
