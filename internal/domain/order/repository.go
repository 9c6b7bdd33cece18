package order

import (
	"context"
	"time"
)

// ListFilter 订单列表查询条件
type ListFilter struct {
	Status          *OrderStatus // 按状态过滤
	Unassigned      bool         // 只看未认领订单
	AssignedStaffID *uint        // 按负责员工过滤
	UserID          *uint        // 按买家过滤(客户查自己的订单)
	Page            int
	PageSize        int
}

// Repository 订单仓储接口(依赖倒置,infrastructure层实现)
//
// 并发约定:
// 所有状态变更方法都是条件更新(WHERE带上期望的当前值),不做读-改-写。
// 条件不满足时返回ErrStaleStatus/ErrAlreadyAssigned等,调用方重读后决策。
// 同一订单的并发流转由此在存储层串行化,进程内不持锁跨I/O。
type Repository interface {
	// Create 创建订单(订单、明细、首条history在同一事务)
	Create(ctx context.Context, o *Order) error

	// FindByID 根据ID查找订单(含明细与history)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByOrderNo 根据订单号查找订单
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// FindByPaymentOrderCode 根据网关订单码查找订单(Webhook/轮询对账入口)
	FindByPaymentOrderCode(ctx context.Context, code int64) (*Order, error)

	// List 条件分页查询
	List(ctx context.Context, filter ListFilter) ([]*Order, int64, error)

	// UpdateStatus 条件状态更新:status=from时置为to,并在同一事务追加history
	// 状态不匹配返回ErrStaleStatus
	UpdateStatus(ctx context.Context, orderID uint, from, to OrderStatus, entry HistoryEntry) error

	// Claim 认领:assigned_staff_id为空且status=PENDING时设置负责员工
	// 冲突时重读区分:已有负责人返回ErrAlreadyAssigned,状态不符返回ErrWrongState
	Claim(ctx context.Context, orderID, staffID uint, entry HistoryEntry) error

	// AssignStaff 指派负责员工(终态订单拒绝),追加history
	AssignStaff(ctx context.Context, orderID, staffID uint, entry HistoryEntry) error

	// MarkInventoryReleased 条件置位released标志
	// 返回true表示本次置位成功(调用方应执行实际的库存归还);
	// 返回false表示已释放过,调用方跳过(释放按订单幂等的关键)
	MarkInventoryReleased(ctx context.Context, orderID uint, at time.Time) (bool, error)

	// ReplaceItems 换货:status=PENDING时整体替换明细与金额,追加history
	ReplaceItems(ctx context.Context, o *Order, entry HistoryEntry) error

	// SetPaymentOrderCode 记录网关订单码
	SetPaymentOrderCode(ctx context.Context, orderID uint, code int64) error

	// MarkPrinted 记录配货单打印时间(幂等:已打印则保留首次时间)
	MarkPrinted(ctx context.Context, orderID uint, at time.Time, entry HistoryEntry) error

	// FindExpiredAwaitingPayment 查找创建时间早于before且仍在AWAITING_PAYMENT的订单
	FindExpiredAwaitingPayment(ctx context.Context, before time.Time) ([]*Order, error)

	// FindStalePendingUnprinted 查找创建时间早于before、仍在PENDING且从未打印的订单
	FindStalePendingUnprinted(ctx context.Context, before time.Time) ([]*Order, error)

	// CountOpenByStaff 批量统计员工当前在手(非终态)订单数,未出现的员工视为0
	CountOpenByStaff(ctx context.Context, staffIDs []uint) (map[uint]int, error)
}
