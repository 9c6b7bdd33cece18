package inventory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xiebiao/eshop/internal/domain/order"
)

// Service 库存领域服务
// 职责:把"一次checkout预留多个SKU"编排成全有或全无的操作
//
// 实现方式:手工补偿而非多行事务
// 每个SKU的扣减本身是原子的条件更新;某个SKU扣减失败时,
// 把本次已扣减的SKU逐个加回去,再返回库存不足错误。
// 对外部观察者而言:要么所有数量都被扣走,要么一个都没少。
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService 创建库存服务
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// FindVariant 查询商品变体(下单/换货时取价格与名称快照)
func (s *Service) FindVariant(ctx context.Context, productID uint, sku string) (*Variant, error) {
	return s.repo.FindVariant(ctx, productID, sku)
}

// FindVariantByAttrs 按颜色/尺码查询商品变体(客户换货不报SKU时用)
func (s *Service) FindVariantByAttrs(ctx context.Context, productID uint, color, size string) (*Variant, error) {
	return s.repo.FindVariantByAttrs(ctx, productID, color, size)
}

// Reserve 预留库存(全有或全无)
//
// 流程:
// 1. 按(product_id, sku)合并重复行,数量求和
// 2. 逐组条件扣减
// 3. 任一组失败:把已扣减的组全部加回,返回点名失败SKU的错误
func (s *Service) Reserve(ctx context.Context, items []order.ReservationItem) error {
	groups, err := GroupItems(items)
	if err != nil {
		return err
	}

	deducted := make([]order.ReservationItem, 0, len(groups))
	for _, g := range groups {
		if err := s.repo.DeductStock(ctx, g.ProductID, g.SKU, g.Quantity); err != nil {
			// 补偿:归还本次已扣减的所有组
			s.rollback(ctx, deducted)
			if errors.Is(err, ErrVariantNotFound) {
				return err
			}
			return NewOutOfStockError(g.SKU)
		}
		deducted = append(deducted, g)
	}

	return nil
}

// Release 归还库存
// 幂等性说明:按订单的幂等由上层released标志保证,这里只做无条件加回
func (s *Service) Release(ctx context.Context, items []order.ReservationItem) error {
	groups, err := GroupItems(items)
	if err != nil {
		return err
	}

	for _, g := range groups {
		if err := s.repo.ReleaseStock(ctx, g.ProductID, g.SKU, g.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// rollback 归还已扣减的组;失败只记日志,继续归还其余组(尽最大努力)
func (s *Service) rollback(ctx context.Context, deducted []order.ReservationItem) {
	for _, g := range deducted {
		if err := s.repo.ReleaseStock(ctx, g.ProductID, g.SKU, g.Quantity); err != nil {
			s.logger.Error("预留补偿失败，库存可能少记",
				zap.Uint("product_id", g.ProductID),
				zap.String("sku", g.SKU),
				zap.Int("quantity", g.Quantity),
				zap.Error(err))
		}
	}
}

// GroupItems 按(product_id, sku)合并重复行并校验数量
// 保持首次出现的顺序,错误信息可预测
func GroupItems(items []order.ReservationItem) ([]order.ReservationItem, error) {
	type key struct {
		productID uint
		sku       string
	}

	index := make(map[key]int, len(items))
	groups := make([]order.ReservationItem, 0, len(items))

	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		k := key{it.ProductID, it.SKU}
		if i, ok := index[k]; ok {
			groups[i].Quantity += it.Quantity
			continue
		}
		index[k] = len(groups)
		groups = append(groups, it)
	}

	return groups, nil
}
