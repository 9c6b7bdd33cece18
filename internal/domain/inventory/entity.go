package inventory

import "time"

// Variant 商品变体(颜色/尺码组合)
// 设计要点:
// 1. 库存计数直接放在变体记录上,读写总是通过(product_id, sku)复合键,
//    不单独建库存表
// 2. Stock不变式:永远 >= 0,由存储层的条件扣减保证
type Variant struct {
	ID        uint
	ProductID uint
	SKU       string
	Color     string
	Size      string
	Name      string // 商品名(含变体描述),下单时快照到订单
	Image     string
	Price     int64 // 单价(分)
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanDeduct 判断是否可以扣减库存
// 注意:这只是读侧的预判断,真正的防超卖由存储层条件扣减保证
func (v *Variant) CanDeduct(quantity int) bool {
	return quantity > 0 && v.Stock >= quantity
}

// IsOutOfStock 判断是否缺货
func (v *Variant) IsOutOfStock() bool {
	return v.Stock <= 0
}
