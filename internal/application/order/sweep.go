package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/eshop/internal/domain/order"
)

// ExpireUnpaidOrders 取消超时未支付订单
//
// 再入安全:查询自带AWAITING_PAYMENT条件,状态写入是条件更新,
// 被并发支付/取消抢先的订单本轮直接跳过。
// 残留窗口:释放库存发生在状态条件更新之前,若释放后支付确认抢先,
// 订单会以CONFIRMED落库但库存已归还(释放标志已置位,不会二次归还),
// 该笔库存多出需要人工盘点核对,因此下面记Error而非静默跳过。
// 单笔失败不中断整轮,返回成功取消的订单数。
func (s *Service) ExpireUnpaidOrders(ctx context.Context, before time.Time) (int, error) {
	expired, err := s.orders.FindExpiredAwaitingPayment(ctx, before)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, o := range expired {
		// 网关链接取消超时不阻塞本地取消
		s.cancelRemoteLink(ctx, o, "超时未支付自动取消")
		s.releaseInventory(ctx, o)

		entry := systemEntry(order.ActionAutoCancel,
			order.StatusAwaitingPayment, order.StatusCancelled, "超时未支付，系统自动取消")
		err := s.orders.UpdateStatus(ctx, o.ID, order.StatusAwaitingPayment, order.StatusCancelled, entry)
		if err != nil {
			// 被并发人工取消抢先无碍(释放标志保证只归还一次);
			// 被支付确认抢先则订单带着已归还的库存进入CONFIRMED,需人工核对
			s.logger.Error("自动取消被并发操作抢先,若为支付确认则该单库存已归还,需盘点核对",
				zap.String("order_no", o.OrderNo), zap.Uint("order_id", o.ID), zap.Error(err))
			continue
		}

		o.Status = order.StatusCancelled
		observeTransition(order.StatusCancelled.String(), "auto_cancel")
		s.notify(ctx, order.EventStatusChanged, o, order.StatusAwaitingPayment)
		cancelled++
	}

	return cancelled, nil
}

// AutoConfirmStalePending 自动确认长期无人处理的货到付款订单
//
// 只处理从未打印配货单的PENDING订单(打印过说明已有人在处理)。
// 确认不触碰库存与支付,仅状态流转。
func (s *Service) AutoConfirmStalePending(ctx context.Context, before time.Time) (int, error) {
	stale, err := s.orders.FindStalePendingUnprinted(ctx, before)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for _, o := range stale {
		entry := systemEntry(order.ActionAutoConfirm,
			order.StatusPending, order.StatusConfirmed, "长时间未处理，系统自动确认")
		err := s.orders.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusConfirmed, entry)
		if err != nil {
			s.logger.Info("自动确认被并发操作抢先,跳过",
				zap.String("order_no", o.OrderNo), zap.Error(err))
			continue
		}

		o.Status = order.StatusConfirmed
		observeTransition(order.StatusConfirmed.String(), "auto_confirm")
		s.notify(ctx, order.EventStatusChanged, o, order.StatusPending)
		confirmed++
	}

	return confirmed, nil
}
