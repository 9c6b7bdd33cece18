package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCanTransitionTo_AllowedEdges 测试合法流转边
func TestCanTransitionTo_AllowedEdges(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipping, false},
		{StatusAwaitingPayment, StatusConfirmed, true},
		{StatusAwaitingPayment, StatusCancelled, true},
		{StatusAwaitingPayment, StatusPacking, false},
		{StatusConfirmed, StatusPacking, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPacking, StatusShipping, true},
		{StatusShipping, StatusDelivering, true},
		{StatusShipping, StatusCancelled, false},
		{StatusDelivering, StatusDone, true},
		{StatusDone, StatusReturned, true},
		{StatusDone, StatusPending, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, c.from.CanTransitionTo(c.to),
			"%s → %s", c.from, c.to)
	}
}

// TestTerminalStatusesHaveNoOutgoingEdges 测试终态封闭性
// CANCELLED/RETURNED无任何出边;DONE只有DONE→RETURNED一条
func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	for _, target := range allStatuses {
		assert.False(t, StatusCancelled.CanTransitionTo(target),
			"CANCELLED不应流转到%s", target)
		assert.False(t, StatusReturned.CanTransitionTo(target),
			"RETURNED不应流转到%s", target)
		if target != StatusReturned {
			assert.False(t, StatusDone.CanTransitionTo(target),
				"DONE只允许流转到RETURNED，不应到%s", target)
		}
	}
	assert.True(t, StatusDone.CanTransitionTo(StatusReturned))
}

// TestIsTerminal 测试终态判断
func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusDone.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusReturned.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusDelivering.IsTerminal())
}

// TestCustomerCanCancel 测试客户自助取消规则
func TestCustomerCanCancel(t *testing.T) {
	assert.True(t, CustomerCanCancel(StatusPending))
	assert.True(t, CustomerCanCancel(StatusAwaitingPayment))
	assert.False(t, CustomerCanCancel(StatusConfirmed))
	assert.False(t, CustomerCanCancel(StatusShipping))
	assert.False(t, CustomerCanCancel(StatusDone))
}

// TestParseStatus 测试状态名解析
func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("AWAITING_PAYMENT")
	assert.True(t, ok)
	assert.Equal(t, StatusAwaitingPayment, st)

	_, ok = ParseStatus("NOT_A_STATUS")
	assert.False(t, ok)
}

// TestTerminalStatuses 终态集合与IsTerminal保持一致(DONE也是终态)
func TestTerminalStatuses(t *testing.T) {
	terminal := TerminalStatuses()
	assert.Contains(t, terminal, StatusDone)
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s", s)
	}
	count := 0
	for _, s := range allStatuses {
		if s.IsTerminal() {
			count++
		}
	}
	assert.Len(t, terminal, count)
}

// TestOpenStatuses 非终态集合不包含终态
func TestOpenStatuses(t *testing.T) {
	open := OpenStatuses()
	assert.Len(t, open, 6)
	for _, s := range open {
		assert.False(t, s.IsTerminal())
	}
}
