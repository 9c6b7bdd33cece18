package inventory

import "context"

// Repository 库存仓储接口(领域层定义,infrastructure层实现)
//
// 并发约定:
// DeductStock必须是存储层的单条原子条件更新
// (UPDATE ... SET stock = stock - ? WHERE ... AND stock >= ?),
// 不允许读-判断-写三步走:同一SKU的并发扣减靠它在存储层串行化。
type Repository interface {
	// FindVariant 根据(product_id, sku)查找变体(换货时取价格/名称快照)
	FindVariant(ctx context.Context, productID uint, sku string) (*Variant, error)

	// FindVariantByAttrs 根据(product_id, color, size)查找变体
	// 客户换货时报的是颜色/尺码而非SKU,由存储层完成属性到变体的定位
	FindVariantByAttrs(ctx context.Context, productID uint, color, size string) (*Variant, error)

	// GetStock 查询当前库存(测试与后台盘点用)
	GetStock(ctx context.Context, productID uint, sku string) (int, error)

	// DeductStock 条件扣减:stock >= qty时扣减qty,否则返回库存不足
	DeductStock(ctx context.Context, productID uint, sku string, qty int) error

	// ReleaseStock 无条件归还qty(补偿失败预留、取消/退货回补)
	ReleaseStock(ctx context.Context, productID uint, sku string, qty int) error
}
