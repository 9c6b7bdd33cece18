package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/eshop/internal/domain/order"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

func TestExpireUnpaidOrders_CancelsExpired(t *testing.T) {
	env := newTestEnv(t)
	o, code := transferOrder(t, env)

	// 订单创建于25小时前
	env.repo.forceCreatedAt(o.ID, time.Now().Add(-25*time.Hour))

	cancelled, err := env.svc.ExpireUnpaidOrders(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	stored := env.repo.mustGet(o.ID)
	assert.Equal(t, order.StatusCancelled, stored.Status)
	assert.True(t, stored.Inventory.Released)

	// 库存回到账面
	assert.Equal(t, 10, env.ledger.stock("TEE-RED-M"))
	assert.Equal(t, 3, env.ledger.stock("CAP-BLACK"))

	// 网关链接也被尽力取消
	require.Len(t, env.gateway.cancelled, 1)
	assert.Equal(t, code, env.gateway.cancelled[0])

	// 自动取消的历史记录无操作人
	last := stored.History[len(stored.History)-1]
	assert.Equal(t, order.ActionAutoCancel, last.Action)
	assert.Nil(t, last.ByUserID)
}

func TestExpireUnpaidOrders_RemoteCancelFailureNonBlocking(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.cancelErr = apperrors.ErrPaymentProvider
	o, _ := transferOrder(t, env)
	env.repo.forceCreatedAt(o.ID, time.Now().Add(-25*time.Hour))

	cancelled, err := env.svc.ExpireUnpaidOrders(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, order.StatusCancelled, env.repo.mustGet(o.ID).Status)
	assert.Equal(t, 10, env.ledger.stock("TEE-RED-M"))
}

func TestExpireUnpaidOrders_SkipsFresh(t *testing.T) {
	env := newTestEnv(t)
	o, _ := transferOrder(t, env)

	cancelled, err := env.svc.ExpireUnpaidOrders(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, cancelled)
	assert.Equal(t, order.StatusAwaitingPayment, env.repo.mustGet(o.ID).Status)
}

func TestExpireUnpaidOrders_SecondRunNoop(t *testing.T) {
	env := newTestEnv(t)
	o, _ := transferOrder(t, env)
	env.repo.forceCreatedAt(o.ID, time.Now().Add(-25*time.Hour))
	ctx := context.Background()
	cutoff := time.Now().Add(-24 * time.Hour)

	first, err := env.svc.ExpireUnpaidOrders(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := env.svc.ExpireUnpaidOrders(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, second, "第二轮扫描应一无所获")

	// 库存只归还一次
	assert.Equal(t, 10, env.ledger.stock("TEE-RED-M"))
}

// confirmDuringScanRepo 在扫描返回后立刻把订单置为CONFIRMED,
// 模拟支付确认落在"扫描快照"与"状态条件更新"之间的窗口
type confirmDuringScanRepo struct {
	*fakeOrderRepo
}

func (r *confirmDuringScanRepo) FindExpiredAwaitingPayment(ctx context.Context, before time.Time) ([]*order.Order, error) {
	expired, err := r.fakeOrderRepo.FindExpiredAwaitingPayment(ctx, before)
	if err != nil {
		return nil, err
	}
	for _, o := range expired {
		r.forceStatus(o.ID, order.StatusConfirmed)
	}
	return expired, nil
}

// 释放库存后状态条件更新输给并发支付确认:订单保持CONFIRMED,
// 库存已归还且释放标志置位——这笔多出的库存留待人工盘点
func TestExpireUnpaidOrders_ConcurrentConfirmLeavesReleasedStock(t *testing.T) {
	env := newTestEnv(t)
	racing := &confirmDuringScanRepo{fakeOrderRepo: env.repo}
	env.svc.orders = racing

	o, _ := transferOrder(t, env)
	env.repo.forceCreatedAt(o.ID, time.Now().Add(-25*time.Hour))

	cancelled, err := env.svc.ExpireUnpaidOrders(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, cancelled)

	stored := env.repo.mustGet(o.ID)
	assert.Equal(t, order.StatusConfirmed, stored.Status)
	assert.True(t, stored.Inventory.Released)
	assert.Equal(t, 10, env.ledger.stock("TEE-RED-M"))

	// 已确认的订单不再出现在后续扫描里
	again, err := env.svc.ExpireUnpaidOrders(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Equal(t, order.StatusConfirmed, env.repo.mustGet(o.ID).Status)
}

func TestAutoConfirmStalePending_ConfirmsUnprinted(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)
	env.repo.forceCreatedAt(o.ID, time.Now().Add(-13*time.Hour))

	confirmed, err := env.svc.AutoConfirmStalePending(context.Background(), time.Now().Add(-12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)

	stored := env.repo.mustGet(o.ID)
	assert.Equal(t, order.StatusConfirmed, stored.Status)

	last := stored.History[len(stored.History)-1]
	assert.Equal(t, order.ActionAutoConfirm, last.Action)
	assert.Nil(t, last.ByUserID)

	// 自动确认不触碰库存
	assert.Equal(t, 8, env.ledger.stock("TEE-RED-M"))
}

func TestAutoConfirmStalePending_SkipsPrinted(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)
	env.repo.forceCreatedAt(o.ID, time.Now().Add(-13*time.Hour))
	require.NoError(t, env.svc.MarkPrinted(context.Background(), o.ID, staffActor))

	confirmed, err := env.svc.AutoConfirmStalePending(context.Background(), time.Now().Add(-12*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, confirmed)
	assert.Equal(t, order.StatusPending, env.repo.mustGet(o.ID).Status)
}

func TestAutoConfirmStalePending_SkipsFresh(t *testing.T) {
	env := newTestEnv(t)
	o := mustCheckout(t, env)

	confirmed, err := env.svc.AutoConfirmStalePending(context.Background(), time.Now().Add(-12*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, confirmed)
	assert.Equal(t, order.StatusPending, env.repo.mustGet(o.ID).Status)
}
