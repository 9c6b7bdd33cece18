package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/domain/payment"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
	"github.com/xiebiao/eshop/pkg/jwt"
)

// transferOrder 下一笔转账订单,返回订单与网关订单码
func transferOrder(t *testing.T, env *testEnv) (*order.Order, int64) {
	t.Helper()
	req := cashRequest()
	req.PaymentMethod = order.PaymentBankTransfer
	resp, err := env.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Order.PaymentOrderCode)
	return resp.Order, *resp.Order.PaymentOrderCode
}

func TestConfirmPayment_Success(t *testing.T) {
	env := newTestEnv(t)
	o, code := transferOrder(t, env)

	err := env.svc.ConfirmPayment(context.Background(), code, o.Amounts.GrandTotal)
	require.NoError(t, err)

	stored := env.repo.mustGet(o.ID)
	assert.Equal(t, order.StatusConfirmed, stored.Status)

	last := stored.History[len(stored.History)-1]
	assert.Equal(t, order.ActionPaymentConfirmed, last.Action)
	assert.Nil(t, last.ByUserID, "收款确认是系统操作")
}

func TestConfirmPayment_DuplicateIdempotent(t *testing.T) {
	env := newTestEnv(t)
	o, code := transferOrder(t, env)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := env.svc.ConfirmPayment(ctx, code, o.Amounts.GrandTotal)
		require.NoError(t, err, "第%d次回调", i+1)
	}

	stored := env.repo.mustGet(o.ID)
	assert.Equal(t, order.StatusConfirmed, stored.Status)

	// 状态流转恰好发生一次
	confirmations := 0
	for _, h := range stored.History {
		if h.Action == order.ActionPaymentConfirmed {
			confirmations++
		}
	}
	assert.Equal(t, 1, confirmations)
}

func TestConfirmPayment_AmountGuard(t *testing.T) {
	env := newTestEnv(t)
	o, code := transferOrder(t, env)
	ctx := context.Background()

	for _, amount := range []int64{
		o.Amounts.GrandTotal - 1,
		o.Amounts.GrandTotal + 1,
		0,
	} {
		err := env.svc.ConfirmPayment(ctx, code, amount)
		require.Error(t, err, "金额%d应被拒绝", amount)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAmountMismatch))
	}

	// 订单保持待支付,未被篡改的金额污染
	assert.Equal(t, order.StatusAwaitingPayment, env.repo.mustGet(o.ID).Status)
}

func TestConfirmPayment_UnknownOrderCode(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ConfirmPayment(context.Background(), 999999, 1000)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestConfirmPayment_LateWebhookCancelledOrder(t *testing.T) {
	env := newTestEnv(t)
	o, code := transferOrder(t, env)

	_, err := env.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		OrderID: o.ID, To: order.StatusCancelled, Actor: staffActor,
	})
	require.NoError(t, err)

	err = env.svc.ConfirmPayment(context.Background(), code, o.Amounts.GrandTotal)
	assert.ErrorIs(t, err, order.ErrWrongState)
	assert.Equal(t, order.StatusCancelled, env.repo.mustGet(o.ID).Status)
}

func TestCheckPaymentStatus_PollFallbackConfirms(t *testing.T) {
	env := newTestEnv(t)
	o, _ := transferOrder(t, env)

	// 网关侧已支付,本地Webhook丢失
	env.gateway.statusFn = func(orderCode int64) (*payment.StatusInfo, error) {
		return &payment.StatusInfo{
			OrderCode:  orderCode,
			Status:     payment.LinkStatusPaid,
			PaidAmount: o.Amounts.GrandTotal,
		}, nil
	}

	result, err := env.svc.CheckPaymentStatus(context.Background(), o.OrderNo, customerActor)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed.String(), result.Status)

	// 与Webhook共用同一确认路径,状态已落库
	assert.Equal(t, order.StatusConfirmed, env.repo.mustGet(o.ID).Status)
}

func TestCheckPaymentStatus_ProviderFailureLocalOnly(t *testing.T) {
	env := newTestEnv(t)
	o, _ := transferOrder(t, env)

	env.gateway.statusFn = func(orderCode int64) (*payment.StatusInfo, error) {
		return nil, apperrors.ErrPaymentProvider
	}

	result, err := env.svc.CheckPaymentStatus(context.Background(), o.OrderNo, customerActor)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingPayment.String(), result.Status)
	assert.Nil(t, result.Provider)
}

func TestCheckPaymentStatus_ForbiddenForOtherCustomer(t *testing.T) {
	env := newTestEnv(t)
	o, _ := transferOrder(t, env)

	other := Actor{UserID: 888, Role: jwt.RoleCustomer}
	_, err := env.svc.CheckPaymentStatus(context.Background(), o.OrderNo, other)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeForbidden))
}
