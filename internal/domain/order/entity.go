package order

import (
	"time"
)

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY" // 货到付款
	PaymentBankTransfer   PaymentMethod = "BANK_TRANSFER"    // 银行转账(网关收银台)
)

// Order 订单实体(聚合根)
// 设计要点:
// 1. Items/ShippingAddress是下单时的不可变快照,商品改价/改名不影响历史订单
// 2. Status是订单生命周期的唯一事实来源
// 3. History只追加不修改,每次状态流转/认领/指派恰好记录一条
// 4. Inventory标志位记录库存是否已预留/已释放,使释放操作幂等
type Order struct {
	ID      uint
	OrderNo string // 订单号(业务主键,全局唯一)
	UserID  uint   // 买家用户ID

	Items           []Item          // 商品快照(聚合内子实体)
	Amounts         Amounts         // 金额明细
	ShippingAddress ShippingAddress // 收货地址快照
	PaymentMethod   PaymentMethod
	Status          OrderStatus

	AssignedStaffID *uint // 负责员工,认领或自动指派后设置,终态前可变更

	Inventory InventoryState // 库存预留/释放标志

	// PaymentOrderCode 支付网关侧订单码,用于Webhook/轮询对账回查本单
	PaymentOrderCode *int64

	// PrintedAt 配货单打印时间;调度器用它区分"已在处理"和"被遗忘"的PENDING订单
	PrintedAt *time.Time

	History []HistoryEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item 订单商品快照
// Price/Name/Image记录下单时的值,不回查商品目录
type Item struct {
	ID        uint
	OrderID   uint
	ProductID uint
	SKU       string // 变体SKU(颜色/尺码组合)
	Name      string
	Image     string
	UnitPrice int64 // 单价(分)
	Quantity  int
	LineTotal int64 // 行小计 = UnitPrice * Quantity
}

// Amounts 订单金额明细(分)
// 不变式: GrandTotal = max(Subtotal-Discount, 0) + ShippingFee
type Amounts struct {
	Subtotal    int64
	Discount    int64
	ShippingFee int64
	GrandTotal  int64
}

// ShippingAddress 收货地址快照
type ShippingAddress struct {
	FullName string
	Phone    string
	Line1    string
	Ward     string
	District string
	City     string
}

// InventoryState 库存预留/释放标志
// Released标志使释放操作按订单幂等:第二次释放是no-op
type InventoryState struct {
	Reserved   bool
	ReservedAt *time.Time
	Released   bool
	ReleasedAt *time.Time
}

// HistoryEntry 订单历史记录(只追加)
type HistoryEntry struct {
	ID         uint
	OrderID    uint
	At         time.Time
	ByUserID   *uint // nil表示系统自动操作
	Action     string
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Note       string
}

// 历史记录Action常量
const (
	ActionCreate           = "CREATE"
	ActionStatusChange     = "STATUS_CHANGE"
	ActionClaim            = "CLAIM"
	ActionAssign           = "ASSIGN"
	ActionEditItem         = "EDIT_ITEM"
	ActionPaymentConfirmed = "PAYMENT_CONFIRMED"
	ActionAutoCancel       = "AUTO_CANCEL"
	ActionAutoConfirm      = "AUTO_CONFIRM"
	ActionPrint            = "PRINT"
)

// New 创建新订单(工厂方法)
// 初始状态:货到付款为PENDING,转账为AWAITING_PAYMENT
// 库存预留由调用方在创建前完成,这里只记录标志
func New(orderNo string, userID uint, items []Item, addr ShippingAddress, method PaymentMethod, discount, shippingFee int64) *Order {
	now := time.Now()

	status := StatusPending
	if method == PaymentBankTransfer {
		status = StatusAwaitingPayment
	}

	o := &Order{
		OrderNo:         orderNo,
		UserID:          userID,
		Items:           items,
		ShippingAddress: addr,
		PaymentMethod:   method,
		Status:          status,
		Inventory: InventoryState{
			Reserved:   true,
			ReservedAt: &now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Amounts.Discount = discount
	o.Amounts.ShippingFee = shippingFee
	o.RecalculateAmounts()
	return o
}

// RecalculateAmounts 根据Items重算金额
// 不变式:Items变更(换货路径)后必须且只能调用一次,避免两处计算不一致
func (o *Order) RecalculateAmounts() {
	var subtotal int64
	for i := range o.Items {
		o.Items[i].LineTotal = o.Items[i].UnitPrice * int64(o.Items[i].Quantity)
		subtotal += o.Items[i].LineTotal
	}
	o.Amounts.Subtotal = subtotal

	payable := subtotal - o.Amounts.Discount
	if payable < 0 {
		payable = 0
	}
	o.Amounts.GrandTotal = payable + o.Amounts.ShippingFee
}

// CanEditItems 判断是否允许修改商品变体
// 只有PENDING状态允许换货(货到付款订单确认前)
func (o *Order) CanEditItems() bool {
	return o.Status == StatusPending
}

// IsOwnedBy 检查订单是否属于指定用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// InventoryItems 返回库存操作用的(商品,SKU,数量)列表
func (o *Order) InventoryItems() []ReservationItem {
	items := make([]ReservationItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = ReservationItem{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
		}
	}
	return items
}

// ReservationItem 库存预留/释放的最小单元
type ReservationItem struct {
	ProductID uint
	SKU       string
	Quantity  int
}
