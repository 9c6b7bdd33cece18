package order

import (
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.ErrOrderNotFound

	// ErrInvalidTransition 非法的状态流转
	ErrInvalidTransition = apperrors.ErrInvalidTransition

	// ErrStaleStatus 条件更新失败:订单状态已被并发修改,调用方需重读
	ErrStaleStatus = apperrors.ErrStaleStatus

	// ErrAlreadyAssigned 认领冲突:订单已有负责员工
	ErrAlreadyAssigned = apperrors.ErrAlreadyAssigned

	// ErrWrongState 当前状态不允许此操作(如非PENDING状态换货/认领)
	ErrWrongState = apperrors.ErrWrongState

	// ErrItemIndexOutOfRange 换货行号越界
	ErrItemIndexOutOfRange = apperrors.New(apperrors.ErrCodeInvalidParams, "订单商品行号不存在")

	// ErrForbiddenCancel 客户在CONFIRMED及之后不允许自助取消
	ErrForbiddenCancel = apperrors.New(apperrors.ErrCodeForbidden, "当前状态不允许自助取消，请联系客服")
)
