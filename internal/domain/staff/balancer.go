package staff

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OpenOrderCounter 统计每个员工当前未完结订单数
type OpenOrderCounter interface {
	// CountOpenByStaff 返回staffIDs中每人的未完结订单数,缺失的员工视为0
	CountOpenByStaff(ctx context.Context, staffIDs []uint) (map[uint]int, error)
}

// Balancer 新订单自动指派的负载均衡器
// 设计说明:
// 1. 候选人 = ShiftProvider返回的在班员工
// 2. 选择未完结订单数最少的员工;并列时取班表顺序中先出现的一个
// 3. 指派是尽力而为:任何一步失败返回0,由调用方决定是否留待人工认领
type Balancer struct {
	shifts  ShiftProvider
	counter OpenOrderCounter
	logger  *zap.Logger
}

// NewBalancer 创建负载均衡器
func NewBalancer(shifts ShiftProvider, counter OpenOrderCounter, logger *zap.Logger) *Balancer {
	return &Balancer{shifts: shifts, counter: counter, logger: logger}
}

// PickStaff 为时刻at的新订单挑选员工,无人在班或查询失败时返回0
func (b *Balancer) PickStaff(ctx context.Context, at time.Time) uint {
	onDuty, err := b.shifts.OnDutyStaff(ctx, at)
	if err != nil {
		b.logger.Warn("查询在班员工失败,跳过自动指派", zap.Error(err))
		return 0
	}
	if len(onDuty) == 0 {
		return 0
	}

	counts, err := b.counter.CountOpenByStaff(ctx, onDuty)
	if err != nil {
		b.logger.Warn("统计员工负载失败,跳过自动指派", zap.Error(err))
		return 0
	}

	var picked uint
	best := -1
	for _, id := range onDuty {
		c := counts[id]
		if best == -1 || c < best {
			best = c
			picked = id
		}
	}
	return picked
}
