package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-pos/internal/middleware"
	"github.com/bitfantasy/nimo-pos/internal/pos/service"
	"github.com/gin-gonic/gin"
)

// 错误码
const (
	CodeBadRequest        = 10001
	CodeNotFound          = 10002
	CodeInsufficientStock = 40901
	CodeReferentialDelete = 40902
	CodeIntegrity         = 40903
	CodeInternal          = 50001
)

// Handlers POS HTTP处理器集合
type Handlers struct {
	Order    *OrderHandler
	Stock    *StockHandler
	Catalog  *CatalogHandler
	Customer *CustomerHandler
	Alert    *AlertHandler
	Events   *EventsHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Order:    NewOrderHandler(services.Orders),
		Stock:    NewStockHandler(services.Stock),
		Catalog:  NewCatalogHandler(services.Catalog),
		Customer: NewCustomerHandler(services.Customer),
		Alert:    NewAlertHandler(services.Alerts, services.Activity),
		Events:   NewEventsHandler(services.Events),
	}
}

// RegisterRoutes 注册 /api/v1/pos 路由，rg 需已挂载 JWT 认证
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	manager := middleware.RequireRole("pos_manager")

	orders := rg.Group("/orders")
	{
		orders.POST("", h.Order.SubmitOrder)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.GET("/:id/invoice", h.Order.GetInvoice)
	}

	rg.PUT("/stock", h.Stock.SetWarehouseStock)

	products := rg.Group("/products")
	{
		products.GET("", h.Catalog.ListProducts)
		products.POST("", h.Catalog.CreateProduct)
		products.PUT("/:id", h.Catalog.UpdateProduct)
		products.DELETE("/:id", manager, h.Catalog.DeleteProduct)
		products.GET("/:id/snapshot", h.Catalog.GetProductSnapshot)
		products.PUT("/:id/stock", h.Stock.BulkUpdateStock)
	}

	suppliers := rg.Group("/suppliers")
	{
		suppliers.GET("", h.Catalog.ListSuppliers)
		suppliers.POST("", h.Catalog.CreateSupplier)
		suppliers.GET("/:id", h.Catalog.GetSupplier)
		suppliers.PUT("/:id", h.Catalog.UpdateSupplier)
		suppliers.DELETE("/:id", manager, h.Catalog.DeleteSupplier)
		suppliers.PUT("/:id/offers", h.Catalog.UpsertSupplierOffer)
		suppliers.DELETE("/:id/offers/:product_id", h.Catalog.RemoveSupplierOffer)
	}

	warehouses := rg.Group("/warehouses")
	{
		warehouses.GET("", h.Catalog.ListWarehouses)
		warehouses.POST("", h.Catalog.CreateWarehouse)
		warehouses.GET("/:id", h.Catalog.GetWarehouse)
		warehouses.PUT("/:id", h.Catalog.UpdateWarehouse)
		warehouses.DELETE("/:id", manager, h.Catalog.DeleteWarehouse)
		warehouses.GET("/:id/stock", h.Stock.ListWarehouseStock)
	}

	customers := rg.Group("/customers")
	{
		customers.GET("", h.Customer.ListCustomers)
		customers.POST("", h.Customer.CreateCustomer)
		customers.GET("/:id", h.Customer.GetCustomer)
		customers.PUT("/:id", h.Customer.UpdateCustomer)
		customers.DELETE("/:id", manager, h.Customer.DeleteCustomer)
	}

	rg.GET("/alerts", h.Alert.ListOpenAlerts)
	rg.POST("/alerts/:product_id/clear", manager, h.Alert.ClearAlert)
	rg.GET("/notifications", h.Alert.ListNotifications)
	rg.POST("/notifications/:id/read", h.Alert.MarkNotificationRead)
	rg.GET("/activity-logs", manager, h.Alert.ListActivityLogs)
	rg.GET("/events", h.Events.Stream)
}

// === 响应辅助函数 ===

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"code": 0, "message": "success", "data": data})
}

func list(c *gin.Context, items interface{}, total int64, page, size int) {
	success(c, gin.H{"items": items, "total": total, "page": page, "size": size})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"code": CodeBadRequest, "message": err.Error()})
}

// handleError 将业务错误映射为响应码
func handleError(c *gin.Context, err error) {
	var ve *service.ValidationError
	var se *service.InsufficientStockError
	var re *service.ReferentialDeleteError
	var ie *service.IntegrityError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    CodeBadRequest,
			"message": ve.Error(),
			"data":    gin.H{"line": ve.Line, "field": ve.Field},
		})
	case errors.As(err, &se):
		c.JSON(http.StatusConflict, gin.H{
			"code":    CodeInsufficientStock,
			"message": se.Error(),
			"data": gin.H{
				"line":         se.Line,
				"product_id":   se.ProductID,
				"warehouse_id": se.WarehouseID,
				"requested":    se.Requested,
				"available":    se.Available,
			},
		})
	case errors.As(err, &re):
		c.JSON(http.StatusConflict, gin.H{"code": CodeReferentialDelete, "message": re.Error()})
	case errors.As(err, &ie):
		c.JSON(http.StatusConflict, gin.H{"code": CodeIntegrity, "message": ie.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": CodeNotFound, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": CodeInternal, "message": err.Error()})
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.KeyUserID)
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}
