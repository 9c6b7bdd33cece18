package order

import (
	"context"
	"fmt"
	"time"

	"github.com/xiebiao/eshop/internal/domain/inventory"
	"github.com/xiebiao/eshop/internal/domain/order"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// UpdateVariantRequest 换货请求(改颜色/尺码)
// 新变体二选一:直接给NewSKU,或给NewColor/NewSize由属性定位
// (只改其中一项时,另一项沿用当前变体的值)
type UpdateVariantRequest struct {
	OrderID   uint
	ItemIndex int // 明细行号,从0开始
	NewSKU    string
	NewColor  string
	NewSize   string
	Actor     Actor
}

// UpdateItemVariant 修改订单商品变体
//
// 约束:
// 1. 仅PENDING状态允许(货到付款订单确认前的售前改单)
// 2. 客户只能改自己的订单,员工可代客修改
// 3. 新变体价格取修改时刻的变体价格,不保留原价
// 4. 库存预留随之迁移:新SKU条件扣减、旧SKU归还、明细替换在同一事务,
//    新SKU库存不足则整体回滚,订单保持原样
func (s *Service) UpdateItemVariant(ctx context.Context, req UpdateVariantRequest) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if !req.Actor.IsStaff() && !o.IsOwnedBy(req.Actor.UserID) {
		return nil, apperrors.ErrForbidden
	}
	if !o.CanEditItems() {
		return nil, order.ErrWrongState
	}
	if req.ItemIndex < 0 || req.ItemIndex >= len(o.Items) {
		return nil, order.ErrItemIndexOutOfRange
	}

	old := o.Items[req.ItemIndex]
	variant, err := s.resolveVariant(ctx, old, req)
	if err != nil {
		return nil, err
	}
	if variant.SKU == old.SKU {
		return o, nil
	}

	err = s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// 先扣新再还旧:新SKU不足时直接失败,不产生中间态
		if err := s.inventory.Reserve(txCtx, []order.ReservationItem{{
			ProductID: old.ProductID, SKU: variant.SKU, Quantity: old.Quantity,
		}}); err != nil {
			return err
		}
		if err := s.inventory.Release(txCtx, []order.ReservationItem{{
			ProductID: old.ProductID, SKU: old.SKU, Quantity: old.Quantity,
		}}); err != nil {
			return err
		}

		o.Items[req.ItemIndex] = order.Item{
			ID:        old.ID,
			OrderID:   old.OrderID,
			ProductID: old.ProductID,
			SKU:       variant.SKU,
			Name:      variant.Name,
			Image:     variant.Image,
			UnitPrice: variant.Price,
			Quantity:  old.Quantity,
		}
		o.RecalculateAmounts()

		byUser := req.Actor.UserID
		entry := order.HistoryEntry{
			At:       time.Now(),
			ByUserID: &byUser,
			Action:   order.ActionEditItem,
			Note:     fmt.Sprintf("第%d行换货: %s → %s", req.ItemIndex+1, old.SKU, variant.SKU),
		}
		return s.orders.ReplaceItems(txCtx, o, entry)
	})
	if err != nil {
		return nil, err
	}

	return o, nil
}

// resolveVariant 定位换货目标变体
// 优先NewSKU;否则按颜色/尺码查找,缺省的一项取当前变体的值
func (s *Service) resolveVariant(ctx context.Context, old order.Item, req UpdateVariantRequest) (*inventory.Variant, error) {
	if req.NewSKU != "" {
		return s.inventory.FindVariant(ctx, old.ProductID, req.NewSKU)
	}
	if req.NewColor == "" && req.NewSize == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "请指定新SKU或新颜色/尺码")
	}

	current, err := s.inventory.FindVariant(ctx, old.ProductID, old.SKU)
	if err != nil {
		return nil, err
	}
	color, size := req.NewColor, req.NewSize
	if color == "" {
		color = current.Color
	}
	if size == "" {
		size = current.Size
	}
	return s.inventory.FindVariantByAttrs(ctx, old.ProductID, color, size)
}
