package inventory

import (
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// 库存领域错误定义
var (
	// ErrVariantNotFound 商品变体不存在
	ErrVariantNotFound = apperrors.ErrVariantNotFound

	// ErrInvalidQuantity 数量必须为正
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "库存操作数量必须大于0")
)

// NewOutOfStockError 库存不足错误,点名第一个失败的SKU
// checkout据此向客户返回可操作的失败原因
func NewOutOfStockError(sku string) *apperrors.AppError {
	return apperrors.Newf(apperrors.ErrCodeOutOfStock, "商品[%s]库存不足", sku)
}
