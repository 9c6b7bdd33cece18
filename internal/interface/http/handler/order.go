package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/eshop/internal/application/order"
	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/interface/http/dto"
	"github.com/xiebiao/eshop/internal/interface/http/middleware"
	"github.com/xiebiao/eshop/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	orderService *apporder.Service
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(orderService *apporder.Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// actor 从Context构建操作发起人(RequireAuth已注入user_id/role)
func actor(c *gin.Context) apporder.Actor {
	return apporder.Actor{
		UserID: middleware.MustGetUserID(c),
		Role:   middleware.GetRole(c),
	}
}

// orderIDParam 解析路径中的订单ID
func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, 40900, "订单ID格式错误")
		return 0, false
	}
	return uint(id), true
}

// Checkout 下单
// @Summary      下单
// @Description  购物车结算:原子预留库存、创建订单,转账订单同时生成收银台支付链接。任一步失败整单回滚,不留半成品订单
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CheckoutRequest true "结算信息"
// @Success      200 {object} response.Response{data=dto.CheckoutResponse} "下单成功"
// @Failure      400 {object} response.Response "参数错误"
// @Failure      40001 {object} response.Response "库存不足(message指明SKU)"
// @Failure      50003 {object} response.Response "支付网关不可用"
// @Router       /orders [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	userID := middleware.MustGetUserID(c)

	items := make([]apporder.CheckoutItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = apporder.CheckoutItem{
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
		}
	}

	result, err := h.orderService.Checkout(c.Request.Context(), apporder.CheckoutRequest{
		UserID:        userID,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		Address: order.ShippingAddress{
			FullName: req.Address.FullName,
			Phone:    req.Address.Phone,
			Line1:    req.Address.Line1,
			Ward:     req.Address.Ward,
			District: req.Address.District,
			City:     req.Address.City,
		},
		Items: items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.CheckoutResponse{
		Order:   dto.ToOrderResponse(result.Order),
		Payment: dto.ToPaymentLinkInfo(result.Payment),
	})
}

// ListOrders 订单列表
// @Summary      订单列表
// @Description  客户只能看自己的订单;员工可按状态/未认领/负责人过滤,用于领单台与工作台
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "状态名(PENDING/AWAITING_PAYMENT/...)"
// @Param        unassigned query bool false "只看未认领订单(仅员工)"
// @Param        staff_id query int false "按负责员工过滤(仅员工)"
// @Param        page query int false "页码(默认1)"
// @Param        page_size query int false "每页大小(默认20)"
// @Success      200 {object} response.Response{data=response.PageData} "查询成功"
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	listReq := apporder.ListRequest{
		Unassigned: req.Unassigned,
		Page:       req.Page,
		PageSize:   req.PageSize,
		Actor:      actor(c),
	}
	if req.Status != "" {
		st, ok := order.ParseStatus(req.Status)
		if !ok {
			response.ErrorWithCode(c, 40900, "未知的订单状态: "+req.Status)
			return
		}
		listReq.Status = &st
	}
	if req.StaffID > 0 {
		staffID := req.StaffID
		listReq.StaffID = &staffID
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), listReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]dto.OrderListItem, len(orders))
	for i, o := range orders {
		list[i] = dto.ToOrderListItem(o)
	}

	page, pageSize := req.Page, req.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	response.SuccessWithPage(c, list, total, page, pageSize)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Description  返回订单明细、金额、地址快照与完整操作历史。客户只能查自己的订单
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse} "查询成功"
// @Failure      40104 {object} response.Response "无权限访问"
// @Failure      40401 {object} response.Response "订单不存在"
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), orderID, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// UpdateStatus 订单状态流转
// @Summary      订单状态流转
// @Description  按状态机推进订单。客户仅限自助取消(PENDING/AWAITING_PAYMENT);取消/退货时幂等释放库存
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Param        request body dto.UpdateStatusRequest true "目标状态与原因"
// @Success      200 {object} response.Response{data=dto.OrderResponse} "流转成功"
// @Failure      40002 {object} response.Response "非法流转"
// @Failure      40006 {object} response.Response "状态已被并发修改"
// @Router       /orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	to, found := order.ParseStatus(req.To)
	if !found {
		response.ErrorWithCode(c, 40900, "未知的订单状态: "+req.To)
		return
	}

	o, err := h.orderService.UpdateStatus(c.Request.Context(), apporder.UpdateStatusRequest{
		OrderID: orderID,
		To:      to,
		Actor:   actor(c),
		Reason:  req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// Claim 认领订单
// @Summary      认领订单
// @Description  员工从领单台认领未分配的PENDING订单。条件更新保证并发认领只有一个赢家
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse} "认领成功"
// @Failure      40003 {object} response.Response "已被其他员工认领"
// @Failure      40004 {object} response.Response "订单状态不允许认领"
// @Router       /orders/{id}/claim [post]
func (h *OrderHandler) Claim(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	o, err := h.orderService.Claim(c.Request.Context(), orderID, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// Assign 指派订单
// @Summary      指派订单
// @Description  将订单指派(或改派)给指定员工,终态订单不可指派
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Param        request body dto.AssignRequest true "目标员工"
// @Success      200 {object} response.Response{data=dto.OrderResponse} "指派成功"
// @Router       /orders/{id}/assign [post]
func (h *OrderHandler) Assign(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	o, err := h.orderService.Assign(c.Request.Context(), orderID, req.StaffID, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// UpdateItemVariant 修改订单商品变体
// @Summary      修改订单商品变体
// @Description  售前改单:换颜色/尺码。仅PENDING订单允许;事务内迁移库存预留并重算金额
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Param        request body dto.UpdateItemVariantRequest true "行号与新SKU(或新颜色/尺码)"
// @Success      200 {object} response.Response{data=dto.OrderResponse} "修改成功"
// @Failure      40001 {object} response.Response "新SKU库存不足"
// @Failure      40004 {object} response.Response "订单状态不允许改单"
// @Router       /orders/{id}/items [put]
func (h *OrderHandler) UpdateItemVariant(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateItemVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	o, err := h.orderService.UpdateItemVariant(c.Request.Context(), apporder.UpdateVariantRequest{
		OrderID:   orderID,
		ItemIndex: req.ItemIndex,
		NewSKU:    req.NewSKU,
		NewColor:  req.NewColor,
		NewSize:   req.NewSize,
		Actor:     actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// MarkPrinted 打印配货单
// @Summary      打印配货单
// @Description  记录首次打印时间(幂等,重复打印不覆盖)。调度器凭此区分已处理和被遗忘的PENDING订单
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response "记录成功"
// @Router       /orders/{id}/print [post]
func (h *OrderHandler) MarkPrinted(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := h.orderService.MarkPrinted(c.Request.Context(), orderID, actor(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
