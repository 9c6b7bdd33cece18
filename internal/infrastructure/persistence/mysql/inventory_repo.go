package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/eshop/internal/domain/inventory"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// inventoryRepository 库存仓储实现(MySQL)
// 设计说明:
// 防超卖靠单条原子条件更新:
//
//	UPDATE product_variants SET stock = stock - ?
//	WHERE product_id = ? AND sku = ? AND stock >= ?
//
// RowsAffected为0即库存不足。不加SELECT FOR UPDATE,不做读-判断-写:
// 同一SKU的并发扣减由这条语句在存储层串行化。
type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存仓储
func NewInventoryRepository(db *gorm.DB) inventory.Repository {
	return &inventoryRepository{db: db}
}

// FindVariant 根据(product_id, sku)查找变体
func (r *inventoryRepository) FindVariant(ctx context.Context, productID uint, sku string) (*inventory.Variant, error) {
	var model ProductVariantModel
	db := r.getDB(ctx)
	err := db.Where("product_id = ? AND sku = ?", productID, sku).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrVariantNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品变体失败")
	}

	return toVariantEntity(&model), nil
}

// FindVariantByAttrs 根据(product_id, color, size)查找变体
func (r *inventoryRepository) FindVariantByAttrs(ctx context.Context, productID uint, color, size string) (*inventory.Variant, error) {
	var model ProductVariantModel
	db := r.getDB(ctx)
	err := db.Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrVariantNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品变体失败")
	}

	return toVariantEntity(&model), nil
}

// GetStock 查询当前库存
func (r *inventoryRepository) GetStock(ctx context.Context, productID uint, sku string) (int, error) {
	var model ProductVariantModel
	db := r.getDB(ctx)
	err := db.Select("stock").
		Where("product_id = ? AND sku = ?", productID, sku).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, inventory.ErrVariantNotFound
		}
		return 0, apperrors.Wrap(err, "查询库存失败")
	}
	return model.Stock, nil
}

// DeductStock 条件扣减库存
func (r *inventoryRepository) DeductStock(ctx context.Context, productID uint, sku string, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}

	db := r.getDB(ctx)
	result := db.Model(&ProductVariantModel{}).
		Where("product_id = ? AND sku = ? AND stock >= ?", productID, sku, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "扣减库存失败")
	}
	if result.RowsAffected == 0 {
		// 区分变体不存在与库存不足
		var exists int64
		if err := db.Model(&ProductVariantModel{}).
			Where("product_id = ? AND sku = ?", productID, sku).
			Count(&exists).Error; err != nil {
			return apperrors.Wrap(err, "查询商品变体失败")
		}
		if exists == 0 {
			return inventory.ErrVariantNotFound
		}
		return inventory.NewOutOfStockError(sku)
	}
	return nil
}

// ReleaseStock 无条件归还库存
func (r *inventoryRepository) ReleaseStock(ctx context.Context, productID uint, sku string, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}

	db := r.getDB(ctx)
	result := db.Model(&ProductVariantModel{}).
		Where("product_id = ? AND sku = ?", productID, sku).
		Update("stock", gorm.Expr("stock + ?", qty))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "归还库存失败")
	}
	if result.RowsAffected == 0 {
		return inventory.ErrVariantNotFound
	}
	return nil
}

// toVariantEntity GORM模型 → 领域实体
func toVariantEntity(model *ProductVariantModel) *inventory.Variant {
	return &inventory.Variant{
		ID:        model.ID,
		ProductID: model.ProductID,
		SKU:       model.SKU,
		Color:     model.Color,
		Size:      model.Size,
		Name:      model.Name,
		Image:     model.Image,
		Price:     model.Price,
		Stock:     model.Stock,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *inventoryRepository) getDB(ctx context.Context) *gorm.DB {
	return getDB(ctx, r.db)
}
