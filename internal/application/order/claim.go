package order

import (
	"context"
	"fmt"
	"time"

	"github.com/xiebiao/eshop/internal/domain/order"
)

// Claim 员工认领订单
// CAS语义:仅当订单无负责人且为PENDING时成功;
// 并发认领的失败方拿到ALREADY_ASSIGNED,状态不符拿到WRONG_STATE
func (s *Service) Claim(ctx context.Context, orderID uint, actor Actor) (*order.Order, error) {
	byUser := actor.UserID
	entry := order.HistoryEntry{
		At:       time.Now(),
		ByUserID: &byUser,
		Action:   order.ActionClaim,
		Note:     fmt.Sprintf("员工#%d认领订单", actor.UserID),
	}

	if err := s.orders.Claim(ctx, orderID, actor.UserID, entry); err != nil {
		return nil, err
	}

	return s.orders.FindByID(ctx, orderID)
}

// Assign 指派订单给指定员工(管理员改派)
// 与认领不同:已有负责人也允许改派,但终态订单拒绝
func (s *Service) Assign(ctx context.Context, orderID, staffID uint, actor Actor) (*order.Order, error) {
	byUser := actor.UserID
	entry := order.HistoryEntry{
		At:       time.Now(),
		ByUserID: &byUser,
		Action:   order.ActionAssign,
		Note:     fmt.Sprintf("指派给员工#%d", staffID),
	}

	if err := s.orders.AssignStaff(ctx, orderID, staffID, entry); err != nil {
		return nil, err
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, order.EventAssigned, o, o.Status)
	return o, nil
}

// MarkPrinted 记录配货单打印
// 幂等:重复打印保留首次时间,调度器据此区分"已在处理"和"被遗忘"的订单
func (s *Service) MarkPrinted(ctx context.Context, orderID uint, actor Actor) error {
	byUser := actor.UserID
	entry := order.HistoryEntry{
		At:       time.Now(),
		ByUserID: &byUser,
		Action:   order.ActionPrint,
		Note:     "打印配货单",
	}
	return s.orders.MarkPrinted(ctx, orderID, time.Now(), entry)
}
