package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/eshop/internal/domain/order"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// UpdateStatusRequest 状态流转请求
type UpdateStatusRequest struct {
	OrderID uint
	To      order.OrderStatus
	Actor   Actor
	Reason  string
}

// UpdateStatus 订单状态流转
//
// 契约:
// 1. 目标状态必须在当前状态的合法出边上,否则INVALID_TRANSITION
// 2. 客户只能取消自己的订单,且仅限PENDING/AWAITING_PAYMENT
// 3. 流转到CANCELLED/RETURNED先按released标志幂等释放库存
// 4. 状态写入是条件更新:并发流转的失败方拿到STALE_STATUS,重读后决策
// 5. 未支付订单取消时尽力而为地取消网关支付链接,失败不阻塞本地取消
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTransition(o, req); err != nil {
		return nil, err
	}

	from := o.Status
	if !from.CanTransitionTo(req.To) {
		observeTransition(req.To.String(), "invalid")
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidTransition,
			"订单状态不允许从%s流转到%s", from.String(), req.To.String())
	}

	// 取消/退货先归还库存(按订单幂等)
	if req.To.ReleasesInventory() {
		s.releaseInventory(ctx, o)
	}

	// 未支付取消:尽力而为取消网关支付链接
	if req.To == order.StatusCancelled && from == order.StatusAwaitingPayment {
		s.cancelRemoteLink(ctx, o, req.Reason)
	}

	byUser := req.Actor.UserID
	entry := order.HistoryEntry{
		At:         time.Now(),
		ByUserID:   &byUser,
		Action:     order.ActionStatusChange,
		FromStatus: from,
		ToStatus:   req.To,
		Note:       actorNote(req.Actor, req.Reason),
	}

	if err := s.orders.UpdateStatus(ctx, o.ID, from, req.To, entry); err != nil {
		observeTransition(req.To.String(), "conflict")
		return nil, err
	}

	o.Status = req.To
	observeTransition(req.To.String(), "success")
	s.notify(ctx, order.EventStatusChanged, o, from)

	return o, nil
}

// authorizeTransition 流转权限校验
// 员工可执行任意合法流转;客户仅限取消自己的未确认订单
func (s *Service) authorizeTransition(o *order.Order, req UpdateStatusRequest) error {
	if req.Actor.IsStaff() {
		return nil
	}

	if !o.IsOwnedBy(req.Actor.UserID) {
		return apperrors.ErrForbidden
	}
	if req.To != order.StatusCancelled {
		return apperrors.ErrForbidden
	}
	if !order.CustomerCanCancel(o.Status) {
		return order.ErrForbiddenCancel
	}
	return nil
}

// releaseInventory 幂等释放订单库存
// released标志CAS成功才执行实际归还,第二次调用是no-op;
// 归还失败只记错误日志(标志已置位,需人工盘点补偿)
func (s *Service) releaseInventory(ctx context.Context, o *order.Order) {
	if !o.Inventory.Reserved {
		return
	}

	first, err := s.orders.MarkInventoryReleased(ctx, o.ID, time.Now())
	if err != nil {
		s.logger.Error("标记库存释放失败", zap.Uint("order_id", o.ID), zap.Error(err))
		return
	}
	if !first {
		return
	}

	if err := s.inventory.Release(ctx, o.InventoryItems()); err != nil {
		s.logger.Error("归还库存失败,需人工盘点",
			zap.Uint("order_id", o.ID),
			zap.String("order_no", o.OrderNo),
			zap.Error(err))
	}
}

// cancelRemoteLink 尽力而为地取消网关支付链接
func (s *Service) cancelRemoteLink(ctx context.Context, o *order.Order, reason string) {
	if s.gateway == nil || o.PaymentOrderCode == nil {
		return
	}
	if reason == "" {
		reason = "订单已取消"
	}
	if err := s.gateway.CancelPaymentLink(ctx, *o.PaymentOrderCode, reason); err != nil {
		s.logger.Warn("取消支付链接失败,本地取消继续",
			zap.Uint("order_id", o.ID),
			zap.Int64("payment_order_code", *o.PaymentOrderCode),
			zap.Error(err))
	}
}
