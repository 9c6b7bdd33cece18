package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/eshop/internal/domain/order"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
// 设计说明:
// 1. Order、OrderItem、OrderHistory是聚合关系,创建时一起保存
// 2. 查询时使用Preload预加载明细,避免N+1问题
// 3. 所有状态变更都是条件UPDATE + RowsAffected判定,不做读-改-写,
//    同一订单的并发流转由存储层串行化
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单
// GORM通过foreignKey自动保存关联的Items和History
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	db := r.getDB(ctx)
	if err := db.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.New(apperrors.ErrCodeBusinessError, "订单号重复，请重试")
		}
		return apperrors.Wrap(err, "创建订单失败")
	}

	// 回填自增ID
	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	for i := range o.History {
		o.History[i].ID = model.History[i].ID
		o.History[i].OrderID = model.ID
	}

	return nil
}

// FindByID 根据ID查找订单(含明细与历史)
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	db := r.getDB(ctx)

	err := db.Preload("Items").Preload("History").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}

	return toOrderEntity(&model), nil
}

// FindByOrderNo 根据订单号查找订单
func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	var model OrderModel
	db := r.getDB(ctx)
	err := db.Preload("Items").Preload("History").
		Where("order_no = ?", orderNo).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}

	return toOrderEntity(&model), nil
}

// FindByPaymentOrderCode 根据网关订单码查找订单(回调对账入口)
func (r *orderRepository) FindByPaymentOrderCode(ctx context.Context, code int64) (*order.Order, error) {
	var model OrderModel
	db := r.getDB(ctx)
	err := db.Preload("Items").
		Where("payment_order_code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}

	return toOrderEntity(&model), nil
}

// List 条件分页查询
func (r *orderRepository) List(ctx context.Context, filter order.ListFilter) ([]*order.Order, int64, error) {
	var models []OrderModel
	var total int64

	db := r.getDB(ctx)
	query := db.Model(&OrderModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", int(*filter.Status))
	}
	if filter.Unassigned {
		query = query.Where("assigned_staff_id IS NULL")
	}
	if filter.AssignedStaffID != nil {
		query = query.Where("assigned_staff_id = ?", *filter.AssignedStaffID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	err := query.Preload("Items").
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}

	return orders, total, nil
}

// UpdateStatus 条件状态更新
// UPDATE orders SET status=to WHERE id=? AND status=from;
// 0行受影响时重读区分"订单不存在"与"状态已被并发修改"
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID uint, from, to order.OrderStatus, entry order.HistoryEntry) error {
	db := r.getDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderModel{}).
			Where("id = ? AND status = ?", orderID, int(from)).
			Updates(map[string]interface{}{
				"status":     int(to),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "更新订单状态失败")
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&OrderModel{}).Where("id = ?", orderID).Count(&exists).Error; err != nil {
				return apperrors.Wrap(err, "查询订单失败")
			}
			if exists == 0 {
				return order.ErrOrderNotFound
			}
			return order.ErrStaleStatus
		}

		return appendHistory(tx, orderID, entry)
	})
}

// Claim 认领订单
// CAS: assigned_staff_id IS NULL AND status=PENDING才允许设置负责员工
func (r *orderRepository) Claim(ctx context.Context, orderID, staffID uint, entry order.HistoryEntry) error {
	db := r.getDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderModel{}).
			Where("id = ? AND assigned_staff_id IS NULL AND status = ?", orderID, int(order.StatusPending)).
			Updates(map[string]interface{}{
				"assigned_staff_id": staffID,
				"updated_at":        time.Now(),
			})
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "认领订单失败")
		}
		if result.RowsAffected == 0 {
			// 重读区分冲突原因
			var model OrderModel
			err := tx.Select("id", "status", "assigned_staff_id").First(&model, orderID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return order.ErrOrderNotFound
			}
			if err != nil {
				return apperrors.Wrap(err, "查询订单失败")
			}
			if model.AssignedStaffID != nil {
				return order.ErrAlreadyAssigned
			}
			return order.ErrWrongState
		}

		return appendHistory(tx, orderID, entry)
	})
}

// AssignStaff 指派负责员工(终态订单拒绝)
func (r *orderRepository) AssignStaff(ctx context.Context, orderID, staffID uint, entry order.HistoryEntry) error {
	terminal := make([]int, 0, 3)
	for _, st := range order.TerminalStatuses() {
		terminal = append(terminal, int(st))
	}

	db := r.getDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderModel{}).
			Where("id = ? AND status NOT IN ?", orderID, terminal).
			Updates(map[string]interface{}{
				"assigned_staff_id": staffID,
				"updated_at":        time.Now(),
			})
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "指派订单失败")
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&OrderModel{}).Where("id = ?", orderID).Count(&exists).Error; err != nil {
				return apperrors.Wrap(err, "查询订单失败")
			}
			if exists == 0 {
				return order.ErrOrderNotFound
			}
			return order.ErrWrongState
		}

		return appendHistory(tx, orderID, entry)
	})
}

// MarkInventoryReleased 条件置位released标志
// 返回true表示本次置位成功,调用方应执行实际的库存归还;
// 已释放过返回false,调用方跳过(释放按订单幂等的关键)
func (r *orderRepository) MarkInventoryReleased(ctx context.Context, orderID uint, at time.Time) (bool, error) {
	db := r.getDB(ctx)
	result := db.Model(&OrderModel{}).
		Where("id = ? AND inventory_reserved = ? AND inventory_released = ?", orderID, true, false).
		Updates(map[string]interface{}{
			"inventory_released": true,
			"released_at":        at,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "标记库存释放失败")
	}
	return result.RowsAffected > 0, nil
}

// ReplaceItems 换货:status=PENDING时整体替换明细与金额
func (r *orderRepository) ReplaceItems(ctx context.Context, o *order.Order, entry order.HistoryEntry) error {
	db := r.getDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderModel{}).
			Where("id = ? AND status = ?", o.ID, int(order.StatusPending)).
			Updates(map[string]interface{}{
				"subtotal":     o.Amounts.Subtotal,
				"discount":     o.Amounts.Discount,
				"shipping_fee": o.Amounts.ShippingFee,
				"grand_total":  o.Amounts.GrandTotal,
				"updated_at":   time.Now(),
			})
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "更新订单金额失败")
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&OrderModel{}).Where("id = ?", o.ID).Count(&exists).Error; err != nil {
				return apperrors.Wrap(err, "查询订单失败")
			}
			if exists == 0 {
				return order.ErrOrderNotFound
			}
			return order.ErrWrongState
		}

		// 整体替换明细快照
		if err := tx.Where("order_id = ?", o.ID).Delete(&OrderItemModel{}).Error; err != nil {
			return apperrors.Wrap(err, "删除旧明细失败")
		}
		items := make([]OrderItemModel, len(o.Items))
		for i, it := range o.Items {
			items[i] = OrderItemModel{
				OrderID:   o.ID,
				ProductID: it.ProductID,
				SKU:       it.SKU,
				Name:      it.Name,
				Image:     it.Image,
				UnitPrice: it.UnitPrice,
				Quantity:  it.Quantity,
				LineTotal: it.LineTotal,
			}
		}
		if err := tx.Create(&items).Error; err != nil {
			return apperrors.Wrap(err, "写入新明细失败")
		}

		return appendHistory(tx, o.ID, entry)
	})
}

// SetPaymentOrderCode 记录网关订单码
func (r *orderRepository) SetPaymentOrderCode(ctx context.Context, orderID uint, code int64) error {
	db := r.getDB(ctx)
	result := db.Model(&OrderModel{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_order_code": code,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "记录支付订单码失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// MarkPrinted 记录配货单打印时间
// printed_at IS NULL条件保证幂等:重复打印保留首次时间
func (r *orderRepository) MarkPrinted(ctx context.Context, orderID uint, at time.Time, entry order.HistoryEntry) error {
	db := r.getDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderModel{}).
			Where("id = ? AND printed_at IS NULL", orderID).
			Updates(map[string]interface{}{
				"printed_at": at,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "记录打印时间失败")
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&OrderModel{}).Where("id = ?", orderID).Count(&exists).Error; err != nil {
				return apperrors.Wrap(err, "查询订单失败")
			}
			if exists == 0 {
				return order.ErrOrderNotFound
			}
			// 已打印过,保留首次时间
			return nil
		}

		return appendHistory(tx, orderID, entry)
	})
}

// FindExpiredAwaitingPayment 查找超时未支付订单(调度器扫描入口)
// 查询自带status条件,重复扫描天然无害
func (r *orderRepository) FindExpiredAwaitingPayment(ctx context.Context, before time.Time) ([]*order.Order, error) {
	return r.findByStatusBefore(ctx, order.StatusAwaitingPayment, before, false)
}

// FindStalePendingUnprinted 查找长期未处理且从未打印的PENDING订单
func (r *orderRepository) FindStalePendingUnprinted(ctx context.Context, before time.Time) ([]*order.Order, error) {
	return r.findByStatusBefore(ctx, order.StatusPending, before, true)
}

func (r *orderRepository) findByStatusBefore(ctx context.Context, status order.OrderStatus, before time.Time, unprintedOnly bool) ([]*order.Order, error) {
	var models []OrderModel
	db := r.getDB(ctx)

	query := db.Preload("Items").
		Where("status = ? AND created_at < ?", int(status), before)
	if unprintedOnly {
		query = query.Where("printed_at IS NULL")
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "扫描订单失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, nil
}

// CountOpenByStaff 批量统计员工在手(非终态)订单数
func (r *orderRepository) CountOpenByStaff(ctx context.Context, staffIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(staffIDs))
	if len(staffIDs) == 0 {
		return counts, nil
	}

	open := make([]int, 0, len(order.OpenStatuses()))
	for _, s := range order.OpenStatuses() {
		open = append(open, int(s))
	}

	var rows []struct {
		StaffID uint
		Cnt     int
	}
	db := r.getDB(ctx)
	err := db.Model(&OrderModel{}).
		Select("assigned_staff_id AS staff_id, COUNT(*) AS cnt").
		Where("assigned_staff_id IN ? AND status IN ?", staffIDs, open).
		Group("assigned_staff_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "统计员工负载失败")
	}

	for _, row := range rows {
		counts[row.StaffID] = row.Cnt
	}
	return counts, nil
}

// appendHistory 在事务内追加一条历史记录
func appendHistory(tx *gorm.DB, orderID uint, entry order.HistoryEntry) error {
	model := toHistoryModel(orderID, entry)
	if err := tx.Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入订单历史失败")
	}
	return nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toOrderModel 领域实体 → GORM模型
func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemModel{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		}
	}

	history := make([]OrderHistoryModel, len(o.History))
	for i, h := range o.History {
		history[i] = *toHistoryModel(o.ID, h)
	}

	return &OrderModel{
		ID:                o.ID,
		OrderNo:           o.OrderNo,
		UserID:            o.UserID,
		PaymentMethod:     string(o.PaymentMethod),
		Status:            int(o.Status),
		AssignedStaffID:   o.AssignedStaffID,
		Subtotal:          o.Amounts.Subtotal,
		Discount:          o.Amounts.Discount,
		ShippingFee:       o.Amounts.ShippingFee,
		GrandTotal:        o.Amounts.GrandTotal,
		ShipFullName:      o.ShippingAddress.FullName,
		ShipPhone:         o.ShippingAddress.Phone,
		ShipLine1:         o.ShippingAddress.Line1,
		ShipWard:          o.ShippingAddress.Ward,
		ShipDistrict:      o.ShippingAddress.District,
		ShipCity:          o.ShippingAddress.City,
		InventoryReserved: o.Inventory.Reserved,
		ReservedAt:        o.Inventory.ReservedAt,
		InventoryReleased: o.Inventory.Released,
		ReleasedAt:        o.Inventory.ReleasedAt,
		PaymentOrderCode:  o.PaymentOrderCode,
		PrintedAt:         o.PrintedAt,
		Items:             items,
		History:           history,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// toOrderEntity GORM模型 → 领域实体
func toOrderEntity(model *OrderModel) *order.Order {
	items := make([]order.Item, len(model.Items))
	for i, it := range model.Items {
		items[i] = order.Item{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		}
	}

	history := make([]order.HistoryEntry, len(model.History))
	for i, h := range model.History {
		history[i] = order.HistoryEntry{
			ID:         h.ID,
			OrderID:    h.OrderID,
			At:         h.At,
			ByUserID:   h.ByUserID,
			Action:     h.Action,
			FromStatus: order.OrderStatus(h.FromStatus),
			ToStatus:   order.OrderStatus(h.ToStatus),
			Note:       h.Note,
		}
	}

	return &order.Order{
		ID:              model.ID,
		OrderNo:         model.OrderNo,
		UserID:          model.UserID,
		Items:           items,
		Amounts: order.Amounts{
			Subtotal:    model.Subtotal,
			Discount:    model.Discount,
			ShippingFee: model.ShippingFee,
			GrandTotal:  model.GrandTotal,
		},
		ShippingAddress: order.ShippingAddress{
			FullName: model.ShipFullName,
			Phone:    model.ShipPhone,
			Line1:    model.ShipLine1,
			Ward:     model.ShipWard,
			District: model.ShipDistrict,
			City:     model.ShipCity,
		},
		PaymentMethod:   order.PaymentMethod(model.PaymentMethod),
		Status:          order.OrderStatus(model.Status),
		AssignedStaffID: model.AssignedStaffID,
		Inventory: order.InventoryState{
			Reserved:   model.InventoryReserved,
			ReservedAt: model.ReservedAt,
			Released:   model.InventoryReleased,
			ReleasedAt: model.ReleasedAt,
		},
		PaymentOrderCode: model.PaymentOrderCode,
		PrintedAt:        model.PrintedAt,
		History:          history,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// toHistoryModel 历史记录 → GORM模型
func toHistoryModel(orderID uint, entry order.HistoryEntry) *OrderHistoryModel {
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	return &OrderHistoryModel{
		OrderID:    orderID,
		At:         at,
		ByUserID:   entry.ByUserID,
		Action:     entry.Action,
		FromStatus: int(entry.FromStatus),
		ToStatus:   int(entry.ToStatus),
		Note:       entry.Note,
	}
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *orderRepository) getDB(ctx context.Context) *gorm.DB {
	return getDB(ctx, r.db)
}
