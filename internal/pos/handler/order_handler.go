package handler

import (
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/bitfantasy/nimo-pos/internal/pos/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	svc *service.OrderEngine
}

func NewOrderHandler(svc *service.OrderEngine) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// SubmitOrder 提交订单，成功返回发票
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	var req service.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft := req.ToDraft(currentUserID(c))
	invoice, err := h.svc.SubmitOrder(c.Request.Context(), draft)
	if err != nil {
		handleError(c, err)
		return
	}
	created(c, invoice)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, order)
}

func (h *OrderHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.svc.GetInvoiceByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, invoice)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, size := pageParams(c)
	params := repository.OrderListParams{
		CustomerID: c.Query("customer_id"),
		From:       c.Query("from"),
		To:         c.Query("to"),
		Page:       page,
		Size:       size,
	}
	orders, total, err := h.svc.ListOrders(c.Request.Context(), params)
	if err != nil {
		handleError(c, err)
		return
	}
	list(c, orders, total, page, size)
}
