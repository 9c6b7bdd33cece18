package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errDownstream = errors.New("支付网关超时")

func testConfig() Config {
	return Config{
		MinRequests:          4,
		FailureRateThreshold: 0.5,
		OpenTimeout:          50 * time.Millisecond,
		HalfOpenMaxProbes:    2,
		CountWindow:          time.Minute,
	}
}

// TestCircuitBreaker_OpensOnFailureRate 测试失败率超过阈值后打开
func TestCircuitBreaker_OpensOnFailureRate(t *testing.T) {
	cb := New("payment", testConfig())

	// 4次请求，3次失败，失败率75% > 50%
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errDownstream })
	_ = cb.Execute(func() error { return errDownstream })
	_ = cb.Execute(func() error { return errDownstream })

	assert.Equal(t, StateOpen, cb.State())

	// 打开状态下请求被快速拒绝，不调用下游
	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called, "熔断打开时不应调用下游")
}

// TestCircuitBreaker_BelowMinRequestsStaysClosed 测试请求数不足不判断失败率
func TestCircuitBreaker_BelowMinRequestsStaysClosed(t *testing.T) {
	cb := New("payment", testConfig())

	_ = cb.Execute(func() error { return errDownstream })
	_ = cb.Execute(func() error { return errDownstream })

	assert.Equal(t, StateClosed, cb.State())
}

// TestCircuitBreaker_HalfOpenRecovery 测试冷却后半开并恢复
func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New("payment", testConfig())

	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return errDownstream })
	}
	assert.Equal(t, StateOpen, cb.State())

	// 等待冷却时间
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	// 探测请求全部成功，熔断器关闭
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

// TestCircuitBreaker_HalfOpenFailureReopens 测试半开状态探测失败重新打开
func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New("payment", testConfig())

	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return errDownstream })
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	_ = cb.Execute(func() error { return errDownstream })
	assert.Equal(t, StateOpen, cb.State())
}

// TestCircuitBreaker_StateChangeCallback 测试状态变更回调
func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	cb := New("payment", testConfig())

	transitions := make([][2]State, 0)
	cb.SetStateChangeCallback(func(name string, from, to State) {
		assert.Equal(t, "payment", name)
		transitions = append(transitions, [2]State{from, to})
	})

	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return errDownstream })
	}

	assert.Equal(t, [][2]State{{StateClosed, StateOpen}}, transitions)
}
