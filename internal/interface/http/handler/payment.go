package handler

import (
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/eshop/internal/application/order"
	"github.com/xiebiao/eshop/internal/domain/payment"
	"github.com/xiebiao/eshop/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/eshop/internal/interface/http/dto"
	"github.com/xiebiao/eshop/pkg/response"
)

// PaymentHandler 支付回调与对账HTTP处理器
type PaymentHandler struct {
	orderService *apporder.Service
	verifier     payment.Verifier
	webhookStore *redis.WebhookStore // 可为nil,仅做重复事件短路
	logger       *zap.Logger
}

// NewPaymentHandler 创建支付处理器
func NewPaymentHandler(orderService *apporder.Service, verifier payment.Verifier, webhookStore *redis.WebhookStore, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		orderService: orderService,
		verifier:     verifier,
		webhookStore: webhookStore,
		logger:       logger,
	}
}

// webhookAck 回调固定应答
// 网关只认HTTP 200+code "00",其它应答会触发重发。业务拒绝(签名错、
// 金额不符、状态不符)不需要重发,所以一律应答成功,问题记日志与指标
type webhookAck struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func ack(c *gin.Context) {
	c.JSON(200, webhookAck{Code: "00", Desc: "success"})
}

// Webhook 支付网关回调
// @Summary      支付网关回调
// @Description  网关支付成功后的服务器通知。验签→去重→按订单码确认收款。无论业务结果如何都应答成功,避免网关无意义重发
// @Tags         支付模块
// @Accept       json
// @Produce      json
// @Param        request body payment.WebhookPayload true "回调载荷"
// @Success      200 {object} handler.webhookAck "已受理"
// @Router       /payment/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var payload payment.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("回调载荷解析失败", zap.Error(err))
		ack(c)
		return
	}

	if !h.verifier.VerifyWebhook(&payload) {
		h.logger.Warn("回调签名校验失败,丢弃事件",
			zap.Int64("order_code", payload.Data.OrderCode),
			zap.String("reference", payload.Data.Reference))
		observeWebhookRejected("bad_signature")
		ack(c)
		return
	}

	if !payload.Success {
		// 非成功事件(取消/过期)不驱动状态机,订单侧由超时扫描兜底
		h.logger.Info("忽略非支付成功回调",
			zap.Int64("order_code", payload.Data.OrderCode),
			zap.String("code", payload.Data.Code))
		ack(c)
		return
	}

	// Redis去重只是短路优化;Redis不可用时直接走业务层,
	// 真正的幂等由订单状态条件更新保证
	if h.webhookStore != nil {
		first, err := h.webhookStore.MarkSeen(c.Request.Context(), payload.Data.OrderCode, payload.Data.Reference)
		if err == nil && !first {
			h.logger.Info("重复回调事件,短路返回",
				zap.Int64("order_code", payload.Data.OrderCode),
				zap.String("reference", payload.Data.Reference))
			ack(c)
			return
		}
	}

	if err := h.orderService.ConfirmPayment(c.Request.Context(), payload.Data.OrderCode, payload.Data.Amount); err != nil {
		// 拒绝原因已在应用层记录指标,这里只留日志线索
		h.logger.Warn("回调确认收款被拒绝",
			zap.Int64("order_code", payload.Data.OrderCode),
			zap.Error(err))
	}

	ack(c)
}

// CheckPaymentStatus 支付状态查询
// @Summary      支付状态查询
// @Description  回调丢失时的轮询兜底:客户查询自己订单的本地+网关侧支付状态,网关侧已支付而本地未确认时顺手补确认
// @Tags         支付模块
// @Produce      json
// @Security     BearerAuth
// @Param        orderNo path string true "订单号"
// @Success      200 {object} response.Response{data=dto.PaymentStatusResponse} "查询成功"
// @Failure      40401 {object} response.Response "订单不存在"
// @Router       /payment/orders/{orderNo}/status [get]
func (h *PaymentHandler) CheckPaymentStatus(c *gin.Context) {
	orderNo := c.Param("orderNo")
	if orderNo == "" {
		response.ErrorWithCode(c, 40900, "订单号不能为空")
		return
	}

	result, err := h.orderService.CheckPaymentStatus(c.Request.Context(), orderNo, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := &dto.PaymentStatusResponse{
		OrderNo: result.OrderNo,
		Status:  result.Status,
	}
	if result.Provider != nil {
		resp.Provider = string(result.Provider.Status)
	}
	response.Success(c, resp)
}
