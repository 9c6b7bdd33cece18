package order

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/domain/payment"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// ConfirmPayment 确认收款(Webhook与轮询兜底共用的唯一入口)
//
// 幂等与防护:
// 1. 金额守卫:回调金额必须与订单应付总额完全一致,不一致视为风控信号,
//    记日志后拒绝,订单保持原状
// 2. 状态CAS:AWAITING_PAYMENT→CONFIRMED的条件更新,重复回调的第二次
//    条件不满足,识别为已确认后按no-op处理
// 3. 已终态(如超时已取消)的订单收到迟到回调:不改状态,记日志等人工退款
func (s *Service) ConfirmPayment(ctx context.Context, orderCode int64, amount int64) error {
	o, err := s.orders.FindByPaymentOrderCode(ctx, orderCode)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			observeWebhook("not_found")
			s.logger.Warn("收款确认找不到对应订单", zap.Int64("payment_order_code", orderCode))
		}
		return err
	}

	if amount != o.Amounts.GrandTotal {
		observeWebhook("amount_mismatch")
		s.logger.Error("收款金额与订单应付不一致,疑似金额篡改",
			zap.String("order_no", o.OrderNo),
			zap.Int64("expected", o.Amounts.GrandTotal),
			zap.Int64("received", amount))
		return apperrors.ErrAmountMismatch
	}

	if o.Status != order.StatusAwaitingPayment {
		if paidAlready(o.Status) {
			observeWebhook("duplicate")
			return nil
		}
		observeWebhook("wrong_state")
		s.logger.Warn("订单已不在待支付状态,收款确认被忽略,可能需要人工退款",
			zap.String("order_no", o.OrderNo),
			zap.String("status", o.Status.String()))
		return order.ErrWrongState
	}

	entry := systemEntry(order.ActionPaymentConfirmed,
		order.StatusAwaitingPayment, order.StatusConfirmed, "网关收款确认")

	err = s.orders.UpdateStatus(ctx, o.ID, order.StatusAwaitingPayment, order.StatusConfirmed, entry)
	if err != nil {
		if errors.Is(err, order.ErrStaleStatus) {
			// 并发确认:重读后已是CONFIRMED则按重复回调处理
			fresh, ferr := s.orders.FindByID(ctx, o.ID)
			if ferr == nil && paidAlready(fresh.Status) {
				observeWebhook("duplicate")
				return nil
			}
		}
		return err
	}

	o.Status = order.StatusConfirmed
	observeWebhook("confirmed")
	s.notify(ctx, order.EventPaymentConfirmed, o, order.StatusAwaitingPayment)
	return nil
}

// paidAlready 判断状态是否已在"收款确认之后"
func paidAlready(st order.OrderStatus) bool {
	switch st {
	case order.StatusConfirmed, order.StatusPacking, order.StatusShipping,
		order.StatusDelivering, order.StatusDone:
		return true
	}
	return false
}

// PaymentStatusResult 支付状态查询结果
type PaymentStatusResult struct {
	OrderNo  string              `json:"order_no"`
	Status   string              `json:"status"`
	Provider *payment.StatusInfo `json:"provider,omitempty"`
}

// CheckPaymentStatus 查询订单支付状态(前端支付完成页轮询)
//
// Webhook丢失的兜底:网关侧已支付而本地仍待支付时,
// 经由ConfirmPayment走与回调完全相同的确认路径。
// 网关查询失败时退化为仅返回本地状态。
func (s *Service) CheckPaymentStatus(ctx context.Context, orderNo string, actor Actor) (*PaymentStatusResult, error) {
	o, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !o.IsOwnedBy(actor.UserID) {
		return nil, apperrors.ErrForbidden
	}

	result := &PaymentStatusResult{OrderNo: o.OrderNo, Status: o.Status.String()}
	if o.PaymentOrderCode == nil || s.gateway == nil {
		return result, nil
	}

	info, err := s.gateway.GetPaymentStatus(ctx, *o.PaymentOrderCode)
	if err != nil {
		s.logger.Warn("查询网关支付状态失败,返回本地状态",
			zap.String("order_no", o.OrderNo), zap.Error(err))
		return result, nil
	}
	result.Provider = info

	if info.Status == payment.LinkStatusPaid && o.Status == order.StatusAwaitingPayment {
		if err := s.ConfirmPayment(ctx, *o.PaymentOrderCode, info.PaidAmount); err == nil {
			result.Status = order.StatusConfirmed.String()
		}
	}

	return result, nil
}
