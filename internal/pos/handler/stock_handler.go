package handler

import (
	"github.com/bitfantasy/nimo-pos/internal/pos/service"
	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	svc *service.StockLedger
}

func NewStockHandler(svc *service.StockLedger) *StockHandler {
	return &StockHandler{svc: svc}
}

type SetStockRequest struct {
	WarehouseID string `json:"warehouse_id" binding:"required"`
	ProductID   string `json:"product_id" binding:"required"`
	Quantity    int64  `json:"quantity"`
}

func (h *StockHandler) SetWarehouseStock(c *gin.Context) {
	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.SetWarehouseStock(c.Request.Context(), req.WarehouseID, req.ProductID, req.Quantity, currentUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}

type BulkStockRequest struct {
	Entries []service.StockEntry `json:"entries" binding:"required,min=1,dive"`
}

func (h *StockHandler) BulkUpdateStock(c *gin.Context) {
	var req BulkStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.BulkUpdateStock(c.Request.Context(), c.Param("id"), req.Entries, currentUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}

func (h *StockHandler) ListWarehouseStock(c *gin.Context) {
	rows, err := h.svc.ListByWarehouse(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, rows)
}
