package handler

import (
	"github.com/bitfantasy/nimo-pos/internal/pos/service"
	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	svc *service.CustomerService
}

func NewCustomerHandler(svc *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := h.svc.CreateCustomer(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	created(c, customer)
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := h.svc.UpdateCustomer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, customer)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.svc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, customer)
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	page, size := pageParams(c)
	items, total, err := h.svc.ListCustomers(c.Request.Context(), c.Query("keyword"), page, size)
	if err != nil {
		handleError(c, err)
		return
	}
	list(c, items, total, page, size)
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.svc.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}
