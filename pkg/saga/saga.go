// Package saga 实现通用的补偿事务（Saga）框架
//
// 核心思想：
// 1. 将跨资源的长操作拆分为多个本地短步骤
// 2. 每个步骤有对应的补偿操作（逆操作）
// 3. 某步失败时，按逆序执行已完成步骤的补偿
//
// 约束：
// - Action和Compensate都必须幂等（网络故障可能导致重试）
// - 补偿操作只依赖自己步骤的结果，不依赖后续步骤
// - Saga提供最终一致性，补偿期间允许出现中间状态
package saga

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step 表示Saga中的一个步骤
type Step struct {
	Name       string                          // 步骤名称（用于日志和调试）
	Action     func(ctx context.Context) error // 正向操作
	Compensate func(ctx context.Context) error // 补偿操作（可为nil）
}

// Saga 表示一次补偿事务
type Saga struct {
	steps    []Step
	executed []Step // 已执行的步骤（用于补偿）
	timeout  time.Duration
	logger   *zap.Logger
}

// New 创建Saga事务
//
// 示例：
//
//	s := saga.New(30*time.Second, logger)
//	s.AddStep("预留库存", reserveStock, releaseStock)
//	s.AddStep("创建订单", createOrder, cancelOrder)
//	err := s.Execute(ctx)
func New(timeout time.Duration, logger *zap.Logger) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saga{
		steps:   make([]Step, 0),
		timeout: timeout,
		logger:  logger,
	}
}

// AddStep 添加一个步骤
// 步骤按添加顺序执行，按逆序补偿
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 执行Saga事务
//
// 流程：
// 1. 按顺序执行每个步骤的Action
// 2. 某步失败时逆序补偿已完成的步骤，返回该步骤的原始错误
// 3. 超时同样触发补偿
//
// 补偿使用独立的Context，避免因原Context超时导致补偿被打断
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		select {
		case <-ctx.Done():
			s.compensate(context.WithoutCancel(ctx))
			return fmt.Errorf("saga超时于步骤[%d:%s]: %w", i, step.Name, ctx.Err())
		default:
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.compensate(context.WithoutCancel(ctx))
				// 返回原始错误，便于上层按业务错误码处理
				return err
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// compensate 逆序执行已完成步骤的补偿
// 某个补偿失败时记录日志并继续执行后续补偿（尽最大努力）
func (s *Saga) compensate(ctx context.Context) {
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			// 补偿失败需要人工介入，记录完整上下文
			s.logger.Error("saga补偿失败",
				zap.String("step", step.Name),
				zap.Error(err))
		}
	}
	s.executed = nil
}
