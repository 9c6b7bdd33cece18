// Package circuitbreaker 实现熔断器模式（Circuit Breaker Pattern)
//
// 核心思想：
// 1. 统计外部调用的成功/失败次数
// 2. 失败率超过阈值时打开熔断器，后续请求快速失败
// 3. 冷却时间过后进入半开状态，放行少量探测请求
//
// 本项目用于保护支付网关调用：网关故障时立即失败，
// 避免checkout请求全部阻塞在网关超时上。
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常放行，统计失败率）
	StateClosed State = iota
	// StateOpen 打开状态（快速失败，给下游恢复时间）
	StateOpen
	// StateHalfOpen 半开状态（放行探测请求，成功则关闭，失败则重新打开）
	StateHalfOpen
)

// String 状态转字符串（便于日志）
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// 熔断器错误
var (
	ErrOpenState      = errors.New("熔断器已打开，请求被拒绝")
	ErrTooManyProbes  = errors.New("半开状态探测请求数已达上限")
)

// Config 熔断器配置
type Config struct {
	// MinRequests 统计窗口内的最小请求数，低于此值不判断失败率
	MinRequests uint64
	// FailureRateThreshold 失败率阈值（0~1），超过则打开熔断器
	FailureRateThreshold float64
	// OpenTimeout 打开状态的冷却时间，超过后转为半开
	OpenTimeout time.Duration
	// HalfOpenMaxProbes 半开状态最多放行的探测请求数
	HalfOpenMaxProbes uint64
	// CountWindow 关闭状态下统计计数的滚动周期
	CountWindow time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		MinRequests:          10,
		FailureRateThreshold: 0.5,
		OpenTimeout:          30 * time.Second,
		HalfOpenMaxProbes:    3,
		CountWindow:          60 * time.Second,
	}
}

// Counts 请求计数
type Counts struct {
	Requests  uint64
	Successes uint64
	Failures  uint64
}

// FailureRate 计算失败率
func (c *Counts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.Failures) / float64(c.Requests)
}

func (c *Counts) reset() {
	c.Requests = 0
	c.Successes = 0
	c.Failures = 0
}

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	name   string
	config Config

	mu        sync.Mutex
	state     State
	counts    Counts
	expiresAt time.Time // 当前状态/统计窗口的到期时间
	probes    uint64    // 半开状态已放行的探测请求数

	onStateChange func(name string, from, to State)
}

// New 创建熔断器
func New(name string, config Config) *CircuitBreaker {
	if config.MinRequests == 0 {
		config = DefaultConfig()
	}
	cb := &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
	}
	cb.expiresAt = time.Now().Add(config.CountWindow)
	return cb
}

// SetStateChangeCallback 注册状态变更回调（用于日志/指标上报）
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute 执行受保护的调用
// 熔断器打开时直接返回ErrOpenState，不调用req
func (cb *CircuitBreaker) Execute(req func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := req()
	cb.afterRequest(err == nil)
	return err
}

// beforeRequest 请求前检查状态
func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.refreshState(now)

	switch cb.state {
	case StateOpen:
		return ErrOpenState
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxProbes {
			return ErrTooManyProbes
		}
		cb.probes++
	}

	return nil
}

// afterRequest 请求后更新计数与状态
func (cb *CircuitBreaker) afterRequest(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.refreshState(now)

	cb.counts.Requests++
	if success {
		cb.counts.Successes++
	} else {
		cb.counts.Failures++
	}

	switch cb.state {
	case StateClosed:
		if cb.counts.Requests >= cb.config.MinRequests &&
			cb.counts.FailureRate() >= cb.config.FailureRateThreshold {
			cb.setState(StateOpen, now)
		}
	case StateHalfOpen:
		if !success {
			cb.setState(StateOpen, now)
		} else if cb.counts.Successes >= cb.config.HalfOpenMaxProbes {
			cb.setState(StateClosed, now)
		}
	}
}

// refreshState 根据时间推进状态（OPEN到期转HALF_OPEN、统计窗口滚动）
func (cb *CircuitBreaker) refreshState(now time.Time) {
	switch cb.state {
	case StateOpen:
		if now.After(cb.expiresAt) {
			cb.setState(StateHalfOpen, now)
		}
	case StateClosed:
		if cb.config.CountWindow > 0 && now.After(cb.expiresAt) {
			cb.counts.reset()
			cb.expiresAt = now.Add(cb.config.CountWindow)
		}
	}
}

// setState 切换状态并重置计数
func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}
	from := cb.state
	cb.state = state
	cb.counts.reset()
	cb.probes = 0

	switch state {
	case StateOpen:
		cb.expiresAt = now.Add(cb.config.OpenTimeout)
	case StateClosed:
		cb.expiresAt = now.Add(cb.config.CountWindow)
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, state)
	}
}

// State 返回当前状态
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshState(time.Now())
	return cb.state
}

// Counts 返回当前计数（副本）
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}
