package order

import (
	"context"

	"github.com/xiebiao/eshop/internal/domain/order"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// ListRequest 订单列表查询
type ListRequest struct {
	Status     *order.OrderStatus
	Unassigned bool
	StaffID    *uint // 按负责员工过滤
	Page       int
	PageSize   int
	Actor      Actor
}

// ListOrders 订单列表
// 客户固定只能看自己的订单;员工可按状态/未认领/负责人过滤
func (s *Service) ListOrders(ctx context.Context, req ListRequest) ([]*order.Order, int64, error) {
	filter := order.ListFilter{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	if req.Actor.IsStaff() {
		filter.Unassigned = req.Unassigned
		filter.AssignedStaffID = req.StaffID
	} else {
		userID := req.Actor.UserID
		filter.UserID = &userID
	}

	return s.orders.List(ctx, filter)
}

// GetOrder 订单详情(含明细与历史)
func (s *Service) GetOrder(ctx context.Context, orderID uint, actor Actor) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !o.IsOwnedBy(actor.UserID) {
		return nil, apperrors.ErrForbidden
	}
	return o, nil
}
