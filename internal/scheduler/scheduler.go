// Package scheduler 订单后台调度器
//
// 独立于任何请求,按固定间隔执行两类扫描:
// 1. 超时未支付订单自动取消(释放库存、尽力取消网关链接)
// 2. 长期无人处理且未打印配货单的货到付款订单自动确认
//
// 再入安全:扫描查询自带状态条件,所有写入都是条件更新,
// 同一笔订单被扫描两次(或多实例同时扫描)也不会重复生效,
// 因此不需要领导选举。
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	apporder "github.com/xiebiao/eshop/internal/application/order"
	"github.com/xiebiao/eshop/internal/infrastructure/config"
	"github.com/xiebiao/eshop/pkg/metrics"
)

// Sweeper 调度器依赖的订单扫描操作(由application/order.Service满足)
type Sweeper interface {
	ExpireUnpaidOrders(ctx context.Context, before time.Time) (int, error)
	AutoConfirmStalePending(ctx context.Context, before time.Time) (int, error)
}

var _ Sweeper = (*apporder.Service)(nil)

// Scheduler 订单调度器
type Scheduler struct {
	sweeper        Sweeper
	interval       time.Duration
	unpaidTimeout  time.Duration
	pendingTimeout time.Duration
	logger         *zap.Logger
}

// New 创建调度器
func New(sweeper Sweeper, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:        sweeper,
		interval:       cfg.Interval,
		unpaidTimeout:  cfg.UnpaidTimeout,
		pendingTimeout: cfg.PendingTimeout,
		logger:         logger,
	}
}

// Run 启动调度循环,阻塞直到ctx取消
// 启动时立即执行一轮(进程重启不等一个完整间隔)
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("订单调度器启动",
		zap.Duration("interval", s.interval),
		zap.Duration("unpaid_timeout", s.unpaidTimeout),
		zap.Duration("pending_timeout", s.pendingTimeout))

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("订单调度器退出")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce 执行一轮全部扫描,单个扫描失败不影响其它扫描
func (s *Scheduler) runOnce(ctx context.Context) {
	now := time.Now()

	observeSweep("expire_unpaid")
	cancelled, err := s.sweeper.ExpireUnpaidOrders(ctx, now.Add(-s.unpaidTimeout))
	if err != nil {
		s.logger.Error("超时未支付扫描失败", zap.Error(err))
	} else if cancelled > 0 {
		observeProcessed("expire_unpaid", cancelled)
		s.logger.Info("超时未支付订单已取消", zap.Int("count", cancelled))
	}

	observeSweep("auto_confirm")
	confirmed, err := s.sweeper.AutoConfirmStalePending(ctx, now.Add(-s.pendingTimeout))
	if err != nil {
		s.logger.Error("滞留订单自动确认扫描失败", zap.Error(err))
	} else if confirmed > 0 {
		observeProcessed("auto_confirm", confirmed)
		s.logger.Info("滞留订单已自动确认", zap.Int("count", confirmed))
	}
}

func observeSweep(sweep string) {
	if metrics.SchedulerSweepsTotal != nil {
		metrics.SchedulerSweepsTotal.WithLabelValues(sweep).Inc()
	}
}

func observeProcessed(sweep string, n int) {
	if metrics.SchedulerProcessedOrders != nil {
		metrics.SchedulerProcessedOrders.WithLabelValues(sweep).Add(float64(n))
	}
}
