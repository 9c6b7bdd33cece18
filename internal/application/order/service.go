// Package order 实现订单生命周期编排用例
//
// 职责边界:
// 1. 编排领域对象与外部资源(库存、支付网关、班表)完成一个业务动作
// 2. 并发正确性不靠进程内锁,靠仓储层的条件更新(冲突方拿到错误后重读)
// 3. 事件发布、自动指派等旁路动作失败只记日志,不影响主流程结果
package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/eshop/internal/domain/inventory"
	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/domain/payment"
	"github.com/xiebiao/eshop/internal/domain/staff"
	"github.com/xiebiao/eshop/pkg/jwt"
)

// TxManager 事务边界(由persistence/mysql.TxManager满足)
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service 订单应用服务
type Service struct {
	orders    order.Repository
	inventory *inventory.Service
	gateway   payment.Gateway
	balancer  *staff.Balancer
	notifier  order.Notifier
	txManager TxManager
	logger    *zap.Logger
}

// NewService 创建订单应用服务
// balancer可为nil(未配置班表时跳过自动指派)
func NewService(
	orders order.Repository,
	inventorySvc *inventory.Service,
	gateway payment.Gateway,
	balancer *staff.Balancer,
	notifier order.Notifier,
	txManager TxManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:    orders,
		inventory: inventorySvc,
		gateway:   gateway,
		balancer:  balancer,
		notifier:  notifier,
		txManager: txManager,
		logger:    logger,
	}
}

// Actor 操作发起人(从JWT中提取)
type Actor struct {
	UserID uint
	Role   string
}

// IsStaff 员工或管理员
func (a Actor) IsStaff() bool {
	return a.Role == jwt.RoleStaff || a.Role == jwt.RoleAdmin
}

// actorNote 按角色格式化历史备注
func actorNote(actor Actor, reason string) string {
	role := "客户"
	if actor.IsStaff() {
		role = "员工"
	}
	if reason == "" {
		return fmt.Sprintf("[%s#%d]", role, actor.UserID)
	}
	return fmt.Sprintf("[%s#%d] %s", role, actor.UserID, reason)
}

// systemEntry 系统自动操作的历史记录(ByUserID为空)
func systemEntry(action string, from, to order.OrderStatus, note string) order.HistoryEntry {
	return order.HistoryEntry{
		At:         time.Now(),
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}
}

// notify 发布订单事件(旁路,不阻塞业务)
func (s *Service) notify(ctx context.Context, eventType string, o *order.Order, from order.OrderStatus) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, order.Event{
		Type:       eventType,
		OrderID:    o.ID,
		OrderNo:    o.OrderNo,
		UserID:     o.UserID,
		FromStatus: from,
		ToStatus:   o.Status,
		OccurredAt: time.Now(),
	})
}
