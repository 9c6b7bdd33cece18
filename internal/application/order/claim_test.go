package order

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/pkg/jwt"
)

func TestClaim_Success(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)

	claimed, err := env.svc.Claim(context.Background(), o.ID, staffActor)
	require.NoError(t, err)
	require.NotNil(t, claimed.AssignedStaffID)
	assert.Equal(t, uint(99), *claimed.AssignedStaffID)

	last := claimed.History[len(claimed.History)-1]
	assert.Equal(t, order.ActionClaim, last.Action)
}

func TestClaim_AlreadyAssigned(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)
	ctx := context.Background()

	_, err := env.svc.Claim(ctx, o.ID, staffActor)
	require.NoError(t, err)

	second := Actor{UserID: 55, Role: jwt.RoleStaff}
	_, err = env.svc.Claim(ctx, o.ID, second)
	assert.ErrorIs(t, err, order.ErrAlreadyAssigned)

	// 第一位认领者不受影响
	assert.Equal(t, uint(99), *env.repo.mustGet(o.ID).AssignedStaffID)
}

func TestClaim_WrongState(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)
	env.repo.forceStatus(o.ID, order.StatusConfirmed)

	_, err := env.svc.Claim(context.Background(), o.ID, staffActor)
	assert.ErrorIs(t, err, order.ErrWrongState)
}

func TestClaim_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(staffID uint) {
			defer wg.Done()
			actor := Actor{UserID: staffID, Role: jwt.RoleStaff}
			if _, err := env.svc.Claim(context.Background(), o.ID, actor); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(uint(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "只能有一位员工认领成功")
}

func TestAssign_Reassign(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)
	ctx := context.Background()

	_, err := env.svc.Claim(ctx, o.ID, staffActor)
	require.NoError(t, err)

	admin := Actor{UserID: 1, Role: jwt.RoleAdmin}
	assigned, err := env.svc.Assign(ctx, o.ID, 200, admin)
	require.NoError(t, err)
	assert.Equal(t, uint(200), *assigned.AssignedStaffID)
}

func TestAssign_TerminalRejected(t *testing.T) {
	admin := Actor{UserID: 1, Role: jwt.RoleAdmin}
	for _, st := range order.TerminalStatuses() {
		t.Run(st.String(), func(t *testing.T) {
			env := newTestEnv(t)
			o := mustCheckout(t, env)
			env.repo.forceStatus(o.ID, st)

			_, err := env.svc.Assign(context.Background(), o.ID, 200, admin)
			assert.ErrorIs(t, err, order.ErrWrongState)
		})
	}
}

func TestMarkPrinted_IdempotentKeepsFirstTime(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)
	ctx := context.Background()

	require.NoError(t, env.svc.MarkPrinted(ctx, o.ID, staffActor))
	first := env.repo.mustGet(o.ID).PrintedAt
	require.NotNil(t, first)

	require.NoError(t, env.svc.MarkPrinted(ctx, o.ID, staffActor))
	assert.Equal(t, *first, *env.repo.mustGet(o.ID).PrintedAt)
}
