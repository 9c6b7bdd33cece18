package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xiebiao/eshop/internal/domain/inventory"
	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/domain/payment"
)

// ---------- 订单仓储fake(内存实现,保留条件更新语义) ----------

type fakeOrderRepo struct {
	mu     sync.Mutex
	seq    uint
	orders map[uint]*order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uint]*order.Order)}
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = append([]order.Item(nil), o.Items...)
	c.History = append([]order.HistoryEntry(nil), o.History...)
	if o.AssignedStaffID != nil {
		v := *o.AssignedStaffID
		c.AssignedStaffID = &v
	}
	if o.PaymentOrderCode != nil {
		v := *o.PaymentOrderCode
		c.PaymentOrderCode = &v
	}
	if o.PrintedAt != nil {
		v := *o.PrintedAt
		c.PrintedAt = &v
	}
	return &c
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.ID = r.seq
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *fakeOrderRepo) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNo == orderNo {
			return cloneOrder(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepo) FindByPaymentOrderCode(ctx context.Context, code int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentOrderCode != nil && *o.PaymentOrderCode == code {
			return cloneOrder(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepo) List(ctx context.Context, filter order.ListFilter) ([]*order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*order.Order
	for id := uint(1); id <= r.seq; id++ {
		o, ok := r.orders[id]
		if !ok {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.Unassigned && o.AssignedStaffID != nil {
			continue
		}
		if filter.AssignedStaffID != nil &&
			(o.AssignedStaffID == nil || *o.AssignedStaffID != *filter.AssignedStaffID) {
			continue
		}
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	return result, int64(len(result)), nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, orderID uint, from, to order.OrderStatus, entry order.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from {
		return order.ErrStaleStatus
	}
	o.Status = to
	entry.OrderID = orderID
	o.History = append(o.History, entry)
	return nil
}

func (r *fakeOrderRepo) Claim(ctx context.Context, orderID, staffID uint, entry order.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.AssignedStaffID != nil {
		return order.ErrAlreadyAssigned
	}
	if o.Status != order.StatusPending {
		return order.ErrWrongState
	}
	o.AssignedStaffID = &staffID
	o.History = append(o.History, entry)
	return nil
}

func (r *fakeOrderRepo) AssignStaff(ctx context.Context, orderID, staffID uint, entry order.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status.IsTerminal() {
		return order.ErrWrongState
	}
	o.AssignedStaffID = &staffID
	o.History = append(o.History, entry)
	return nil
}

func (r *fakeOrderRepo) MarkInventoryReleased(ctx context.Context, orderID uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	if !o.Inventory.Reserved || o.Inventory.Released {
		return false, nil
	}
	o.Inventory.Released = true
	o.Inventory.ReleasedAt = &at
	return true, nil
}

func (r *fakeOrderRepo) ReplaceItems(ctx context.Context, o *order.Order, entry order.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if stored.Status != order.StatusPending {
		return order.ErrWrongState
	}
	stored.Items = append([]order.Item(nil), o.Items...)
	stored.Amounts = o.Amounts
	stored.History = append(stored.History, entry)
	return nil
}

func (r *fakeOrderRepo) SetPaymentOrderCode(ctx context.Context, orderID uint, code int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.PaymentOrderCode = &code
	return nil
}

func (r *fakeOrderRepo) MarkPrinted(ctx context.Context, orderID uint, at time.Time, entry order.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.PrintedAt != nil {
		return nil
	}
	o.PrintedAt = &at
	o.History = append(o.History, entry)
	return nil
}

func (r *fakeOrderRepo) FindExpiredAwaitingPayment(ctx context.Context, before time.Time) ([]*order.Order, error) {
	return r.findByStatusBefore(order.StatusAwaitingPayment, before, false), nil
}

func (r *fakeOrderRepo) FindStalePendingUnprinted(ctx context.Context, before time.Time) ([]*order.Order, error) {
	return r.findByStatusBefore(order.StatusPending, before, true), nil
}

func (r *fakeOrderRepo) findByStatusBefore(status order.OrderStatus, before time.Time, unprintedOnly bool) []*order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*order.Order
	for id := uint(1); id <= r.seq; id++ {
		o, ok := r.orders[id]
		if !ok || o.Status != status || !o.CreatedAt.Before(before) {
			continue
		}
		if unprintedOnly && o.PrintedAt != nil {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	return result
}

func (r *fakeOrderRepo) CountOpenByStaff(ctx context.Context, staffIDs []uint) (map[uint]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[uint]int, len(staffIDs))
	for _, o := range r.orders {
		if o.AssignedStaffID == nil || o.Status.IsTerminal() {
			continue
		}
		for _, id := range staffIDs {
			if *o.AssignedStaffID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

// mustGet 测试断言用:直接读存储的订单
func (r *fakeOrderRepo) mustGet(id uint) *order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrder(r.orders[id])
}

// forceStatus 测试预置用:绕过流转校验直接改状态
func (r *fakeOrderRepo) forceStatus(id uint, st order.OrderStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[id].Status = st
}

// forceCreatedAt 测试预置用:把创建时间拨回过去
func (r *fakeOrderRepo) forceCreatedAt(id uint, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[id].CreatedAt = at
}

// ---------- 库存仓储fake ----------

type fakeLedger struct {
	mu       sync.Mutex
	variants map[string]*inventory.Variant // key: sku
}

func newFakeLedger(variants ...*inventory.Variant) *fakeLedger {
	l := &fakeLedger{variants: make(map[string]*inventory.Variant)}
	for _, v := range variants {
		l.variants[v.SKU] = v
	}
	return l
}

func (l *fakeLedger) FindVariant(ctx context.Context, productID uint, sku string) (*inventory.Variant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.variants[sku]
	if !ok || v.ProductID != productID {
		return nil, inventory.ErrVariantNotFound
	}
	c := *v
	return &c, nil
}

func (l *fakeLedger) FindVariantByAttrs(ctx context.Context, productID uint, color, size string) (*inventory.Variant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range l.variants {
		if v.ProductID == productID && v.Color == color && v.Size == size {
			c := *v
			return &c, nil
		}
	}
	return nil, inventory.ErrVariantNotFound
}

func (l *fakeLedger) GetStock(ctx context.Context, productID uint, sku string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.variants[sku]
	if !ok {
		return 0, inventory.ErrVariantNotFound
	}
	return v.Stock, nil
}

func (l *fakeLedger) DeductStock(ctx context.Context, productID uint, sku string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.variants[sku]
	if !ok {
		return inventory.ErrVariantNotFound
	}
	if v.Stock < qty {
		return inventory.NewOutOfStockError(sku)
	}
	v.Stock -= qty
	return nil
}

func (l *fakeLedger) ReleaseStock(ctx context.Context, productID uint, sku string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.variants[sku]
	if !ok {
		return inventory.ErrVariantNotFound
	}
	v.Stock += qty
	return nil
}

func (l *fakeLedger) stock(sku string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.variants[sku].Stock
}

// ---------- 支付网关fake ----------

type fakeGateway struct {
	mu sync.Mutex

	createErr error
	cancelErr error
	statusFn  func(orderCode int64) (*payment.StatusInfo, error)

	created   []payment.LinkRequest
	cancelled []int64
}

func (g *fakeGateway) CreatePaymentLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	return &payment.Link{
		OrderCode:   req.OrderCode,
		CheckoutURL: fmt.Sprintf("https://pay.example.com/checkout/%d", req.OrderCode),
		Status:      payment.LinkStatusPending,
	}, nil
}

func (g *fakeGateway) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, orderCode)
	return g.cancelErr
}

func (g *fakeGateway) GetPaymentStatus(ctx context.Context, orderCode int64) (*payment.StatusInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusFn != nil {
		return g.statusFn(orderCode)
	}
	return &payment.StatusInfo{OrderCode: orderCode, Status: payment.LinkStatusPending}, nil
}

// ---------- 事件与事务fake ----------

type captureNotifier struct {
	mu     sync.Mutex
	events []order.Event
}

func (n *captureNotifier) Notify(ctx context.Context, event order.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *captureNotifier) typesSeen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]string, len(n.events))
	for i, e := range n.events {
		types[i] = e.Type
	}
	return types
}

type passTx struct{}

func (passTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
