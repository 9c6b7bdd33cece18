package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/domain/payment"
	"github.com/xiebiao/eshop/internal/domain/shipping"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
	"github.com/xiebiao/eshop/pkg/saga"
)

// checkoutTimeout 整个下单Saga的超时上限(含网关调用)
const checkoutTimeout = 30 * time.Second

// CheckoutItem 结算项
type CheckoutItem struct {
	ProductID uint   `json:"product_id"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	UserID        uint
	PaymentMethod order.PaymentMethod
	Address       order.ShippingAddress
	Items         []CheckoutItem
}

// CheckoutResponse 结算结果
// Payment仅在转账订单时返回(收银台链接/二维码)
type CheckoutResponse struct {
	Order   *order.Order  `json:"order"`
	Payment *payment.Link `json:"payment,omitempty"`
}

// Checkout 下单
//
// 流程(Saga编排,任一步失败时逆序补偿已完成步骤):
// 1. 校验:收货地址、结算项非空、支付方式
// 2. 快照:按当前变体价格/名称冻结结算项,计算运费
// 3. 预留库存(原子条件扣减,不足则整单失败并指明SKU)
// 4. 创建订单(货到付款→PENDING,转账→AWAITING_PAYMENT)
// 5. 转账订单创建支付链接;网关失败则回滚订单与库存,不留半成品订单
// 6. 尽力而为:自动指派在班员工、发布创建事件
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	start := time.Now()

	if err := validateCheckout(req); err != nil {
		observeCheckout("validation")
		return nil, err
	}

	// 快照结算项(价格取下单时刻的变体价格,防前端改价)
	items := make([]order.Item, len(req.Items))
	for i, ci := range req.Items {
		v, err := s.inventory.FindVariant(ctx, ci.ProductID, ci.SKU)
		if err != nil {
			observeCheckout("validation")
			return nil, err
		}
		items[i] = order.Item{
			ProductID: ci.ProductID,
			SKU:       ci.SKU,
			Name:      v.Name,
			Image:     v.Image,
			UnitPrice: v.Price,
			Quantity:  ci.Quantity,
		}
	}

	var subtotal int64
	for i := range items {
		subtotal += items[i].UnitPrice * int64(items[i].Quantity)
	}
	shippingFee := shipping.CalculateFee(req.Address.City, req.Address.District, subtotal)

	orderNo := order.GenerateOrderNo()
	newOrder := order.New(orderNo, req.UserID, items, req.Address, req.PaymentMethod, 0, shippingFee)
	reservation := newOrder.InventoryItems()

	var link *payment.Link

	sg := saga.New(checkoutTimeout, s.logger)

	sg.AddStep("预留库存",
		func(ctx context.Context) error {
			return s.inventory.Reserve(ctx, reservation)
		},
		func(ctx context.Context) error {
			return s.inventory.Release(ctx, reservation)
		},
	)

	sg.AddStep("创建订单",
		func(ctx context.Context) error {
			newOrder.History = []order.HistoryEntry{
				systemEntry(order.ActionCreate, newOrder.Status, newOrder.Status, "订单创建"),
			}
			return s.orders.Create(ctx, newOrder)
		},
		func(ctx context.Context) error {
			// 置位released标志后再取消,避免后续扫描重复归还库存
			// (实际的库存归还由"预留库存"步骤的补偿完成)
			if _, err := s.orders.MarkInventoryReleased(ctx, newOrder.ID, time.Now()); err != nil {
				return err
			}
			return s.orders.UpdateStatus(ctx, newOrder.ID, newOrder.Status, order.StatusCancelled,
				systemEntry(order.ActionAutoCancel, newOrder.Status, order.StatusCancelled, "下单失败自动取消"))
		},
	)

	if req.PaymentMethod == order.PaymentBankTransfer {
		sg.AddStep("创建支付链接",
			func(ctx context.Context) error {
				code := order.GeneratePaymentOrderCode()
				created, err := s.gateway.CreatePaymentLink(ctx, payment.LinkRequest{
					OrderCode:   code,
					Amount:      newOrder.Amounts.GrandTotal,
					Description: fmt.Sprintf("订单%s", orderNo),
				})
				if err != nil {
					return err
				}
				link = created
				newOrder.PaymentOrderCode = &code
				return s.orders.SetPaymentOrderCode(ctx, newOrder.ID, code)
			},
			func(ctx context.Context) error {
				if newOrder.PaymentOrderCode == nil {
					return nil
				}
				return s.gateway.CancelPaymentLink(ctx, *newOrder.PaymentOrderCode, "下单失败")
			},
		)
	}

	if err := sg.Execute(ctx); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeOutOfStock) {
			observeCheckout("out_of_stock")
		} else if apperrors.IsCode(err, apperrors.ErrCodePaymentProvider) {
			observeCheckout("payment_error")
			// 网关错误统一映射,不向客户端泄露网关细节
			err = apperrors.WrapCode(apperrors.ErrCodePaymentProvider, err, "支付服务暂时不可用，请稍后重试")
		} else {
			observeCheckout("error")
		}
		return nil, err
	}

	// 自动指派(尽力而为,失败则留待人工认领)
	s.autoAssign(ctx, newOrder)

	s.notify(ctx, order.EventCreated, newOrder, 0)
	observeCheckout("success")
	observeCheckoutDuration(time.Since(start))

	return &CheckoutResponse{Order: newOrder, Payment: link}, nil
}

// autoAssign 按在班员工负载最轻原则自动指派,货到付款与转账订单同样适用
func (s *Service) autoAssign(ctx context.Context, o *order.Order) {
	if s.balancer == nil {
		return
	}

	staffID := s.balancer.PickStaff(ctx, time.Now())
	if staffID == 0 {
		return
	}

	entry := systemEntry(order.ActionAssign, o.Status, o.Status,
		fmt.Sprintf("系统自动指派给员工#%d", staffID))
	if err := s.orders.AssignStaff(ctx, o.ID, staffID, entry); err != nil {
		s.logger.Warn("自动指派失败,订单留待人工认领",
			zap.Uint("order_id", o.ID),
			zap.Uint("staff_id", staffID),
			zap.Error(err))
		return
	}
	o.AssignedStaffID = &staffID
	s.notify(ctx, order.EventAssigned, o, o.Status)
}

// validateCheckout 结算请求校验
func validateCheckout(req CheckoutRequest) error {
	if len(req.Items) == 0 {
		return apperrors.ErrNoItemsSelected
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return apperrors.New(apperrors.ErrCodeInvalidParams, "商品数量必须大于0")
		}
		if it.SKU == "" {
			return apperrors.New(apperrors.ErrCodeInvalidParams, "商品SKU不能为空")
		}
	}
	addr := req.Address
	if addr.FullName == "" || addr.Phone == "" || addr.Line1 == "" || addr.City == "" {
		return apperrors.ErrAddressRequired
	}
	switch req.PaymentMethod {
	case order.PaymentCashOnDelivery, order.PaymentBankTransfer:
	default:
		return apperrors.New(apperrors.ErrCodeInvalidParams, "不支持的支付方式")
	}
	return nil
}
