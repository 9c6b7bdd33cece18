package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleItems() []Item {
	return []Item{
		{ProductID: 1, SKU: "TSHIRT-RED-M", Name: "红色T恤 M码", UnitPrice: 50000, Quantity: 2},
		{ProductID: 2, SKU: "CAP-BLK", Name: "黑色棒球帽", UnitPrice: 30000, Quantity: 1},
	}
}

func sampleAddress() ShippingAddress {
	return ShippingAddress{
		FullName: "张三",
		Phone:    "0900000001",
		Line1:    "幸福路1号",
		Ward:     "第5坊",
		District: "1郡",
		City:     "胡志明市",
	}
}

// TestNew_CashOrderStartsPending 货到付款订单初始状态为PENDING
func TestNew_CashOrderStartsPending(t *testing.T) {
	o := New(GenerateOrderNo(), 100, sampleItems(), sampleAddress(), PaymentCashOnDelivery, 0, 8000)

	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.Inventory.Reserved)
	assert.False(t, o.Inventory.Released)
	assert.NotNil(t, o.Inventory.ReservedAt)
	assert.Nil(t, o.PaymentOrderCode)
	assert.Nil(t, o.AssignedStaffID)
}

// TestNew_TransferOrderStartsAwaitingPayment 转账订单初始状态为AWAITING_PAYMENT
func TestNew_TransferOrderStartsAwaitingPayment(t *testing.T) {
	o := New(GenerateOrderNo(), 100, sampleItems(), sampleAddress(), PaymentBankTransfer, 0, 8000)
	assert.Equal(t, StatusAwaitingPayment, o.Status)
}

// TestRecalculateAmounts 测试金额计算不变式
func TestRecalculateAmounts(t *testing.T) {
	o := New(GenerateOrderNo(), 100, sampleItems(), sampleAddress(), PaymentCashOnDelivery, 20000, 8000)

	// subtotal = 50000*2 + 30000*1 = 130000
	assert.Equal(t, int64(130000), o.Amounts.Subtotal)
	assert.Equal(t, int64(100000), o.Items[0].LineTotal)
	// grandTotal = max(130000-20000, 0) + 8000 = 118000
	assert.Equal(t, int64(118000), o.Amounts.GrandTotal)
}

// TestRecalculateAmounts_DiscountExceedsSubtotal 折扣超过小计时应付金额不为负
func TestRecalculateAmounts_DiscountExceedsSubtotal(t *testing.T) {
	items := []Item{{ProductID: 1, SKU: "X", UnitPrice: 10000, Quantity: 1}}
	o := New(GenerateOrderNo(), 100, items, sampleAddress(), PaymentCashOnDelivery, 99999999, 8000)

	// max(10000-99999999, 0) + 8000 = 8000
	assert.Equal(t, int64(8000), o.Amounts.GrandTotal)
}

// TestRecalculateAmounts_AfterItemEdit 换货后重算金额
func TestRecalculateAmounts_AfterItemEdit(t *testing.T) {
	o := New(GenerateOrderNo(), 100, sampleItems(), sampleAddress(), PaymentCashOnDelivery, 0, 8000)

	// 换成更贵的变体
	o.Items[0].SKU = "TSHIRT-RED-XL"
	o.Items[0].UnitPrice = 55000
	o.RecalculateAmounts()

	assert.Equal(t, int64(110000), o.Items[0].LineTotal)
	assert.Equal(t, int64(140000), o.Amounts.Subtotal)
	assert.Equal(t, int64(148000), o.Amounts.GrandTotal)
}

// TestCanEditItems 只有PENDING允许换货
func TestCanEditItems(t *testing.T) {
	o := New(GenerateOrderNo(), 100, sampleItems(), sampleAddress(), PaymentCashOnDelivery, 0, 0)
	assert.True(t, o.CanEditItems())

	o.Status = StatusConfirmed
	assert.False(t, o.CanEditItems())

	o.Status = StatusAwaitingPayment
	assert.False(t, o.CanEditItems())
}

// TestInventoryItems 生成库存操作列表
func TestInventoryItems(t *testing.T) {
	o := New(GenerateOrderNo(), 100, sampleItems(), sampleAddress(), PaymentCashOnDelivery, 0, 0)

	items := o.InventoryItems()
	assert.Equal(t, []ReservationItem{
		{ProductID: 1, SKU: "TSHIRT-RED-M", Quantity: 2},
		{ProductID: 2, SKU: "CAP-BLK", Quantity: 1},
	}, items)
}

// TestGenerateOrderNo 订单号格式与唯一性(弱校验)
func TestGenerateOrderNo(t *testing.T) {
	a := GenerateOrderNo()
	b := GenerateOrderNo()
	assert.Regexp(t, `^ORD\d+$`, a)
	assert.NotEqual(t, a, b)
}
