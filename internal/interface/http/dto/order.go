package dto

import (
	"fmt"

	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/domain/payment"
)

// =========================================
// 下单
// =========================================

// CheckoutRequest HTTP下单请求
// validator tag说明:
// - required: 必填字段
// - dive: 逐项校验items数组元素
// - oneof: 支付方式白名单
type CheckoutRequest struct {
	PaymentMethod string              `json:"payment_method" binding:"required,oneof=CASH_ON_DELIVERY BANK_TRANSFER" example:"CASH_ON_DELIVERY"`
	Address       AddressRequest      `json:"address" binding:"required"`
	Items         []CheckoutItemInput `json:"items" binding:"required,min=1,dive"`
}

// CheckoutItemInput 结算项
type CheckoutItemInput struct {
	ProductID uint   `json:"product_id" binding:"required" example:"1"`
	SKU       string `json:"sku" binding:"required,max=64" example:"TEE-RED-M"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// AddressRequest 收货地址
type AddressRequest struct {
	FullName string `json:"full_name" binding:"required,max=100" example:"阮文安"`
	Phone    string `json:"phone" binding:"required,max=20" example:"0901234567"`
	Line1    string `json:"line1" binding:"required,max=200" example:"黎利街123号"`
	Ward     string `json:"ward" binding:"max=100" example:"滨义坊"`
	District string `json:"district" binding:"max=100" example:"第一郡"`
	City     string `json:"city" binding:"required,max=100" example:"胡志明市"`
}

// CheckoutResponse HTTP下单响应
// Payment仅在转账订单返回(收银台链接/二维码)
type CheckoutResponse struct {
	Order   *OrderResponse   `json:"order"`
	Payment *PaymentLinkInfo `json:"payment,omitempty"`
}

// PaymentLinkInfo 支付链接信息
type PaymentLinkInfo struct {
	OrderCode   int64  `json:"order_code" example:"17254321001"`
	CheckoutURL string `json:"checkout_url" example:"https://pay.example.com/web/17254321001"`
	QRCode      string `json:"qr_code" example:"00020101021238570010A000000727..."`
}

// =========================================
// 订单查询
// =========================================

// OrderResponse HTTP订单详情响应
type OrderResponse struct {
	ID              uint            `json:"id" example:"1"`
	OrderNo         string          `json:"order_no" example:"ORD1699248000123456"`
	UserID          uint            `json:"user_id" example:"7"`
	Status          string          `json:"status" example:"PENDING"`
	PaymentMethod   string          `json:"payment_method" example:"CASH_ON_DELIVERY"`
	Items           []OrderItemInfo `json:"items"`
	Subtotal        int64           `json:"subtotal" example:"38000"`
	Discount        int64           `json:"discount" example:"0"`
	ShippingFee     int64           `json:"shipping_fee" example:"20000"`
	GrandTotal      int64           `json:"grand_total" example:"58000"`
	GrandTotalYuan  string          `json:"grand_total_yuan" example:"580.00"`
	Address         AddressInfo     `json:"address"`
	AssignedStaffID *uint           `json:"assigned_staff_id,omitempty" example:"99"`
	PrintedAt       string          `json:"printed_at,omitempty" example:"2026-01-15 10:30:00"`
	History         []HistoryInfo   `json:"history,omitempty"`
	CreatedAt       string          `json:"created_at" example:"2026-01-15 10:30:00"`
	UpdatedAt       string          `json:"updated_at" example:"2026-01-15 10:30:00"`
}

// OrderItemInfo 订单商品快照
type OrderItemInfo struct {
	ProductID uint   `json:"product_id" example:"1"`
	SKU       string `json:"sku" example:"TEE-RED-M"`
	Name      string `json:"name" example:"纯棉T恤 红色 M码"`
	Image     string `json:"image" example:"https://example.com/tee-red.jpg"`
	UnitPrice int64  `json:"unit_price" example:"15000"`
	Quantity  int    `json:"quantity" example:"2"`
	LineTotal int64  `json:"line_total" example:"30000"`
}

// AddressInfo 收货地址快照
type AddressInfo struct {
	FullName string `json:"full_name" example:"阮文安"`
	Phone    string `json:"phone" example:"0901234567"`
	Line1    string `json:"line1" example:"黎利街123号"`
	Ward     string `json:"ward" example:"滨义坊"`
	District string `json:"district" example:"第一郡"`
	City     string `json:"city" example:"胡志明市"`
}

// HistoryInfo 订单历史记录项
// ByUserID为null表示系统自动操作(超时取消、自动确认等)
type HistoryInfo struct {
	At         string `json:"at" example:"2026-01-15 10:30:00"`
	ByUserID   *uint  `json:"by_user_id,omitempty" example:"99"`
	Action     string `json:"action" example:"STATUS_CHANGE"`
	FromStatus string `json:"from_status" example:"PENDING"`
	ToStatus   string `json:"to_status" example:"CONFIRMED"`
	Note       string `json:"note" example:"[员工#99] 已电话确认"`
}

// OrderListItem HTTP订单列表项
// 列表查询不返回history(减少数据传输量)
type OrderListItem struct {
	ID              uint   `json:"id" example:"1"`
	OrderNo         string `json:"order_no" example:"ORD1699248000123456"`
	UserID          uint   `json:"user_id" example:"7"`
	Status          string `json:"status" example:"PENDING"`
	PaymentMethod   string `json:"payment_method" example:"CASH_ON_DELIVERY"`
	ItemCount       int    `json:"item_count" example:"3"`
	GrandTotal      int64  `json:"grand_total" example:"58000"`
	AssignedStaffID *uint  `json:"assigned_staff_id,omitempty" example:"99"`
	CreatedAt       string `json:"created_at" example:"2026-01-15 10:30:00"`
}

// ListOrdersRequest HTTP订单列表请求
// status传状态名(PENDING/AWAITING_PAYMENT/...),unassigned=true只看未认领
type ListOrdersRequest struct {
	Status     string `form:"status" binding:"omitempty,max=20" example:"PENDING"`
	Unassigned bool   `form:"unassigned" example:"true"`
	StaffID    uint   `form:"staff_id" example:"99"`
	Page       int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// =========================================
// 履约操作
// =========================================

// UpdateStatusRequest HTTP状态流转请求
type UpdateStatusRequest struct {
	To     string `json:"to" binding:"required,max=20" example:"CONFIRMED"`
	Reason string `json:"reason" binding:"max=500" example:"已电话确认"`
}

// AssignRequest HTTP指派请求
type AssignRequest struct {
	StaffID uint `json:"staff_id" binding:"required" example:"99"`
}

// UpdateItemVariantRequest HTTP换货请求
// item_index是订单明细的行号(从0开始)
// 新变体二选一:给new_sku,或给new_color/new_size按属性定位
type UpdateItemVariantRequest struct {
	ItemIndex int    `json:"item_index" binding:"min=0" example:"0"`
	NewSKU    string `json:"new_sku" binding:"omitempty,max=64" example:"TEE-BLUE-M"`
	NewColor  string `json:"new_color" binding:"omitempty,max=50" example:"蓝"`
	NewSize   string `json:"new_size" binding:"omitempty,max=50" example:"M"`
}

// PaymentStatusResponse HTTP支付状态查询响应
type PaymentStatusResponse struct {
	OrderNo  string `json:"order_no" example:"ORD1699248000123456"`
	Status   string `json:"status" example:"CONFIRMED"`
	Provider string `json:"provider,omitempty" example:"PAID"`
}

// =========================================
// 转换函数
// =========================================

const timeLayout = "2006-01-02 15:04:05"

// FormatYuan 格式化金额(分→元)
func FormatYuan(fen int64) string {
	return fmt.Sprintf("%.2f", float64(fen)/100.0)
}

// ToOrderResponse 领域订单→HTTP详情响应
func ToOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemInfo, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemInfo{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		}
	}

	history := make([]HistoryInfo, len(o.History))
	for i, h := range o.History {
		history[i] = HistoryInfo{
			At:         h.At.Format(timeLayout),
			ByUserID:   h.ByUserID,
			Action:     h.Action,
			FromStatus: h.FromStatus.String(),
			ToStatus:   h.ToStatus.String(),
			Note:       h.Note,
		}
	}

	resp := &OrderResponse{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Status:          o.Status.String(),
		PaymentMethod:   string(o.PaymentMethod),
		Items:           items,
		Subtotal:        o.Amounts.Subtotal,
		Discount:        o.Amounts.Discount,
		ShippingFee:     o.Amounts.ShippingFee,
		GrandTotal:      o.Amounts.GrandTotal,
		GrandTotalYuan:  FormatYuan(o.Amounts.GrandTotal),
		Address:         toAddressInfo(o.ShippingAddress),
		AssignedStaffID: o.AssignedStaffID,
		History:         history,
		CreatedAt:       o.CreatedAt.Format(timeLayout),
		UpdatedAt:       o.UpdatedAt.Format(timeLayout),
	}
	if o.PrintedAt != nil {
		resp.PrintedAt = o.PrintedAt.Format(timeLayout)
	}
	return resp
}

// ToOrderListItem 领域订单→HTTP列表项
func ToOrderListItem(o *order.Order) OrderListItem {
	return OrderListItem{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Status:          o.Status.String(),
		PaymentMethod:   string(o.PaymentMethod),
		ItemCount:       len(o.Items),
		GrandTotal:      o.Amounts.GrandTotal,
		AssignedStaffID: o.AssignedStaffID,
		CreatedAt:       o.CreatedAt.Format(timeLayout),
	}
}

// ToPaymentLinkInfo 网关支付链接→HTTP响应
func ToPaymentLinkInfo(link *payment.Link) *PaymentLinkInfo {
	if link == nil {
		return nil
	}
	return &PaymentLinkInfo{
		OrderCode:   link.OrderCode,
		CheckoutURL: link.CheckoutURL,
		QRCode:      link.QRCode,
	}
}

func toAddressInfo(a order.ShippingAddress) AddressInfo {
	return AddressInfo{
		FullName: a.FullName,
		Phone:    a.Phone,
		Line1:    a.Line1,
		Ward:     a.Ward,
		District: a.District,
		City:     a.City,
	}
}
