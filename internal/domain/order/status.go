package order

// OrderStatus 订单状态
// 说明:
// 1. 使用int类型而非string(节省存储空间,便于索引)
// 2. 状态值1-9递增,大致对应履约流转方向
// 3. 终态:DONE、CANCELLED、RETURNED(RETURNED只能从DONE到达)
type OrderStatus int

const (
	StatusPending         OrderStatus = 1 // 待处理(货到付款的初始状态)
	StatusAwaitingPayment OrderStatus = 2 // 待支付(转账订单的初始状态)
	StatusConfirmed       OrderStatus = 3 // 已确认
	StatusPacking         OrderStatus = 4 // 打包中
	StatusShipping        OrderStatus = 5 // 已发货
	StatusDelivering      OrderStatus = 6 // 派送中
	StatusDone            OrderStatus = 7 // 已完成
	StatusCancelled       OrderStatus = 8 // 已取消
	StatusReturned        OrderStatus = 9 // 已退货
)

// String 实现Stringer接口(方便日志输出)
func (s OrderStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusAwaitingPayment:
		return "AWAITING_PAYMENT"
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusPacking:
		return "PACKING"
	case StatusShipping:
		return "SHIPPING"
	case StatusDelivering:
		return "DELIVERING"
	case StatusDone:
		return "DONE"
	case StatusCancelled:
		return "CANCELLED"
	case StatusReturned:
		return "RETURNED"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus 解析状态名(HTTP接口用)
func ParseStatus(s string) (OrderStatus, bool) {
	for _, st := range allStatuses {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

var allStatuses = []OrderStatus{
	StatusPending, StatusAwaitingPayment, StatusConfirmed, StatusPacking,
	StatusShipping, StatusDelivering, StatusDone, StatusCancelled, StatusReturned,
}

// transitions 合法的状态流转边
// 注意:RETURNED只能从DONE到达;CANCELLED和RETURNED是终态,无出边
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:         {StatusConfirmed, StatusCancelled},
	StatusAwaitingPayment: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:       {StatusPacking, StatusCancelled},
	StatusPacking:         {StatusShipping, StatusCancelled},
	StatusShipping:        {StatusDelivering},
	StatusDelivering:      {StatusDone},
	StatusDone:            {StatusReturned},
	StatusCancelled:       {},
	StatusReturned:        {},
}

// CanTransitionTo 检查是否可以流转到目标状态
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal 判断是否为终态
// DONE虽然有DONE→RETURNED一条出边,但视为终态:
// 到达DONE后items/amounts/shippingAddress冻结,只允许退货流转追加history
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusCancelled, StatusReturned:
		return true
	default:
		return false
	}
}

// ReleasesInventory 判断流转到该状态是否需要释放库存
func (s OrderStatus) ReleasesInventory() bool {
	return s == StatusCancelled || s == StatusReturned
}

// TerminalStatuses 返回终态集合(存储层拒绝指派终态订单用)
func TerminalStatuses() []OrderStatus {
	return []OrderStatus{StatusDone, StatusCancelled, StatusReturned}
}

// OpenStatuses 返回非终态集合(统计员工在手订单用)
func OpenStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending, StatusAwaitingPayment, StatusConfirmed,
		StatusPacking, StatusShipping, StatusDelivering,
	}
}

// CustomerCanCancel 判断客户是否可以自助取消
// 规则:CONFIRMED及之后只能由员工取消/退货
func CustomerCanCancel(current OrderStatus) bool {
	return current == StatusPending || current == StatusAwaitingPayment
}
