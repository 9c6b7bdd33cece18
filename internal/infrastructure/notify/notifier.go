// Package notify 实现基于RabbitMQ的订单事件发布
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/pkg/mq"
)

// MQNotifier 把订单事件发布到topic交换机
// 说明:发布失败只记日志不向上冒泡,事件是订单主流程的尽力而为旁路
type MQNotifier struct {
	publisher *mq.Publisher
	logger    *zap.Logger
}

// NewMQNotifier 创建事件发布器
func NewMQNotifier(publisher *mq.Publisher, logger *zap.Logger) *MQNotifier {
	return &MQNotifier{publisher: publisher, logger: logger}
}

// Notify 发布订单事件,routing key即事件类型
func (n *MQNotifier) Notify(ctx context.Context, event order.Event) {
	if err := n.publisher.Publish(ctx, event.Type, event); err != nil {
		n.logger.Warn("发布订单事件失败",
			zap.String("type", event.Type),
			zap.String("order_no", event.OrderNo),
			zap.Error(err))
	}
}

// NopNotifier 空实现(MQ未配置或测试场景)
type NopNotifier struct{}

// Notify 丢弃事件
func (NopNotifier) Notify(ctx context.Context, event order.Event) {}
