// Package payment 定义支付网关端口与回调载荷
// 说明:
// 1. 领域层只依赖Gateway接口,具体HTTP客户端在infrastructure/payment实现
// 2. 金额一律为整数分,与订单聚合保持一致
package payment

import "context"

// LinkStatus 支付链接在服务商侧的状态
type LinkStatus string

const (
	LinkStatusPending   LinkStatus = "PENDING"
	LinkStatusPaid      LinkStatus = "PAID"
	LinkStatusCancelled LinkStatus = "CANCELLED"
	LinkStatusExpired   LinkStatus = "EXPIRED"
)

// LinkRequest 创建支付链接的入参
type LinkRequest struct {
	OrderCode   int64  // 对账用订单码,全局唯一
	Amount      int64  // 应付金额(分)
	Description string // 展示给付款人的摘要
}

// Link 服务商返回的支付链接
type Link struct {
	OrderCode   int64      `json:"orderCode"`
	CheckoutURL string     `json:"checkoutUrl"`
	QRCode      string     `json:"qrCode"`
	Status      LinkStatus `json:"status"`
}

// StatusInfo 轮询查询到的支付单状态
type StatusInfo struct {
	OrderCode  int64      `json:"orderCode"`
	Amount     int64      `json:"amount"`
	PaidAmount int64      `json:"amountPaid"`
	Status     LinkStatus `json:"status"`
}

// Gateway 支付服务商端口
type Gateway interface {
	// CreatePaymentLink 为订单码创建支付链接
	CreatePaymentLink(ctx context.Context, req LinkRequest) (*Link, error)
	// CancelPaymentLink 取消服务商侧支付链接,尽力而为
	CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error
	// GetPaymentStatus 查询支付单状态(webhook丢失时的轮询兜底)
	GetPaymentStatus(ctx context.Context, orderCode int64) (*StatusInfo, error)
}

// WebhookData 回调中的业务数据
type WebhookData struct {
	OrderCode int64  `json:"orderCode"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Code      string `json:"code"`
	Desc      string `json:"desc"`
}

// WebhookPayload 服务商回调的完整载荷
// Signature为对Data做HMAC-SHA256规范化签名的十六进制串
type WebhookPayload struct {
	Code      string      `json:"code"`
	Desc      string      `json:"desc"`
	Success   bool        `json:"success"`
	Data      WebhookData `json:"data"`
	Signature string      `json:"signature"`
}

// Verifier 回调签名校验端口
type Verifier interface {
	// VerifyWebhook 校验回调签名,false表示丢弃该事件
	VerifyWebhook(payload *WebhookPayload) bool
}
