package handler

import (
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/bitfantasy/nimo-pos/internal/pos/service"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// --- Product ---

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req service.UpsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.ID = ""
	id, err := h.svc.UpsertProduct(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	created(c, gin.H{"id": id})
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req service.UpsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.ID = c.Param("id")
	id, err := h.svc.UpsertProduct(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, gin.H{"id": id})
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}

func (h *CatalogHandler) GetProductSnapshot(c *gin.Context) {
	snap, err := h.svc.GetProductSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, snap)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, size := pageParams(c)
	params := repository.ProductListParams{
		Keyword:  c.Query("keyword"),
		LowStock: c.Query("low_stock") == "true",
		Page:     page,
		Size:     size,
	}
	items, total, err := h.svc.ListProducts(c.Request.Context(), params)
	if err != nil {
		handleError(c, err)
		return
	}
	list(c, items, total, page, size)
}

// --- Supplier ---

func (h *CatalogHandler) CreateSupplier(c *gin.Context) {
	var req service.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	supplier, err := h.svc.CreateSupplier(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	created(c, supplier)
}

func (h *CatalogHandler) UpdateSupplier(c *gin.Context) {
	var req service.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	supplier, err := h.svc.UpdateSupplier(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, supplier)
}

func (h *CatalogHandler) GetSupplier(c *gin.Context) {
	supplier, err := h.svc.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, supplier)
}

func (h *CatalogHandler) ListSuppliers(c *gin.Context) {
	page, size := pageParams(c)
	items, total, err := h.svc.ListSuppliers(c.Request.Context(), c.Query("keyword"), page, size)
	if err != nil {
		handleError(c, err)
		return
	}
	list(c, items, total, page, size)
}

func (h *CatalogHandler) DeleteSupplier(c *gin.Context) {
	if err := h.svc.DeleteSupplier(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}

func (h *CatalogHandler) UpsertSupplierOffer(c *gin.Context) {
	var req service.SupplierOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	offer, err := h.svc.UpsertSupplierOffer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, offer)
}

func (h *CatalogHandler) RemoveSupplierOffer(c *gin.Context) {
	if err := h.svc.RemoveSupplierOffer(c.Request.Context(), c.Param("id"), c.Param("product_id")); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}

// --- Warehouse ---

func (h *CatalogHandler) CreateWarehouse(c *gin.Context) {
	var req service.WarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wh, err := h.svc.CreateWarehouse(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	created(c, wh)
}

func (h *CatalogHandler) UpdateWarehouse(c *gin.Context) {
	var req service.WarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wh, err := h.svc.UpdateWarehouse(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, wh)
}

func (h *CatalogHandler) GetWarehouse(c *gin.Context) {
	wh, err := h.svc.GetWarehouse(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, wh)
}

func (h *CatalogHandler) ListWarehouses(c *gin.Context) {
	items, err := h.svc.ListWarehouses(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, items)
}

func (h *CatalogHandler) DeleteWarehouse(c *gin.Context) {
	if err := h.svc.DeleteWarehouse(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}
