package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestWrap_Unwrap 测试包装错误后仍可通过errors.Is识别底层错误
func TestWrap_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	wrapped := Wrap(inner, "数据库错误")

	assert.True(t, errors.Is(wrapped, inner), "应能解包出底层错误")
	assert.Equal(t, ErrCodeInternal, wrapped.Code)
}

// TestGetAppError 测试非AppError会被包装为内部错误
func TestGetAppError(t *testing.T) {
	plain := errors.New("boom")
	appErr := GetAppError(plain)
	assert.Equal(t, ErrCodeInternal, appErr.Code)

	// 已经是AppError的保持原错误码
	got := GetAppError(ErrAlreadyAssigned)
	assert.Equal(t, ErrCodeAlreadyAssigned, got.Code)
}

// TestIsCode 测试错误码判断
func TestIsCode(t *testing.T) {
	err := Newf(ErrCodeOutOfStock, "商品[%s]库存不足", "SKU-RED-M")
	assert.True(t, IsCode(err, ErrCodeOutOfStock))
	assert.False(t, IsCode(err, ErrCodeInvalidTransition))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeOutOfStock))

	// 包装后错误码不变
	wrapped := WrapCode(ErrCodeStaleStatus, errors.New("rows affected 0"), "状态已变更")
	assert.True(t, IsCode(wrapped, ErrCodeStaleStatus))
}
