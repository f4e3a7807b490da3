// Package testutil 提供 POS 包测试用的数据库、路由和种子数据。
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/middleware"
	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const JWTSecret = "nimo-pos-test-secret"

var dbSeq atomic.Int64

// TestEnv 单个测试用例的数据库和路由
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB opens an isolated in-memory SQLite database with all POS tables.
// The pool is capped at one connection so the database lives for the whole test
// and transactions are serialized like a single-writer store.
// Set POS_TEST_SQL_DEBUG to print every statement.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:posdb_%d_%d?mode=memory&cache=shared&_busy_timeout=5000", time.Now().UnixNano(), dbSeq.Add(1))

	level := logger.Silent
	if os.Getenv("POS_TEST_SQL_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(level),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("migrate POS tables: %v", err)
	}
	return db
}

// SetupRouter 测试模式下的空路由
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	return r
}

// AuthGroup 挂载了 JWT 认证的路由组
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken 签发一小时有效的测试令牌
func GenerateTestToken(userID, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID: userID,
		Name:   name,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "nimo-pos",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// DefaultTestToken 拥有店长权限的收银员
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Cashier", []string{"pos_manager"})
}

// DoRequest 以 JSON 请求体调用路由
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		payload = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse 解析 {code, message, data} 响应体
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	out := map[string]interface{}{}
	if w.Code == http.StatusNoContent {
		return out
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

// SeedWarehouse creates a warehouse
func SeedWarehouse(t *testing.T, db *gorm.DB, name string) *entity.Warehouse {
	t.Helper()
	wh := &entity.Warehouse{
		ID:   uuid.New().String(),
		Code: "WH-" + uuid.New().String()[:8],
		Name: name,
	}
	if err := db.Create(wh).Error; err != nil {
		t.Fatalf("Failed to seed warehouse: %v", err)
	}
	return wh
}

// SeedProduct creates a product with no stock, selling from sourceWarehouseID
func SeedProduct(t *testing.T, db *gorm.DB, name string, minStock int64, sourceWarehouseID string) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:                uuid.New().String(),
		Code:              "PRD-" + uuid.New().String()[:8],
		Name:              name,
		UnitType:          entity.UnitTypePiece,
		MinStockLevel:     minStock,
		RetailPrice:       decimal.NewFromInt(20),
		WholesalePrice:    decimal.NewFromInt(15),
		SourceWarehouseID: sourceWarehouseID,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

// SeedStock writes a warehouse stock row and refreshes the product total
func SeedStock(t *testing.T, db *gorm.DB, warehouseID, productID string, quantity int64) {
	t.Helper()
	row := &entity.WarehouseStock{WarehouseID: warehouseID, ProductID: productID, Quantity: quantity}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		t.Fatalf("Failed to seed stock: %v", err)
	}
	err := db.Exec(`UPDATE pos_products SET current_stock =
		(SELECT COALESCE(SUM(quantity), 0) FROM pos_warehouse_products WHERE product_id = ?) WHERE id = ?`,
		productID, productID).Error
	if err != nil {
		t.Fatalf("Failed to refresh product stock: %v", err)
	}
}

// SeedSupplier creates a supplier
func SeedSupplier(t *testing.T, db *gorm.DB, name string) *entity.Supplier {
	t.Helper()
	s := &entity.Supplier{
		ID:           uuid.New().String(),
		SupplierCode: "SUP-" + uuid.New().String()[:8],
		Name:         name,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}
	return s
}

// SeedOffer creates a supplier offer
func SeedOffer(t *testing.T, db *gorm.DB, supplierID, productID string, price int64) {
	t.Helper()
	offer := &entity.SupplierOffer{
		SupplierID:  supplierID,
		ProductID:   productID,
		SupplyPrice: decimal.NewFromInt(price),
		SupplyDate:  time.Now(),
	}
	if err := db.Create(offer).Error; err != nil {
		t.Fatalf("Failed to seed offer: %v", err)
	}
}

// SeedCustomer creates a customer with a flat discount amount
func SeedCustomer(t *testing.T, db *gorm.DB, name string, discount int64) *entity.Customer {
	t.Helper()
	c := &entity.Customer{
		ID:             uuid.New().String(),
		CustomerCode:   "CUS-" + uuid.New().String()[:8],
		Name:           name,
		DiscountAmount: decimal.NewFromInt(discount),
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to seed customer: %v", err)
	}
	return c
}

// StockOf returns the warehouse quantity and the product's cached total
func StockOf(t *testing.T, db *gorm.DB, warehouseID, productID string) (quantity, total int64) {
	t.Helper()
	var rows []entity.WarehouseStock
	db.Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).Find(&rows)
	if len(rows) == 1 {
		quantity = rows[0].Quantity
	}
	var p entity.Product
	if err := db.Where("id = ?", productID).First(&p).Error; err != nil {
		t.Fatalf("Failed to load product: %v", err)
	}
	return quantity, p.CurrentStock
}

// AssertStockInvariant fails the test when any product's cached total differs
// from the sum of its warehouse rows
func AssertStockInvariant(t *testing.T, db *gorm.DB) {
	t.Helper()
	var rows []struct {
		ID           string
		CurrentStock int64
		Total        int64
	}
	err := db.Raw(`SELECT p.id, p.current_stock,
		(SELECT COALESCE(SUM(w.quantity), 0) FROM pos_warehouse_products w WHERE w.product_id = p.id) AS total
		FROM pos_products p`).Scan(&rows).Error
	if err != nil {
		t.Fatalf("Failed to check stock invariant: %v", err)
	}
	for _, r := range rows {
		if r.CurrentStock != r.Total {
			t.Errorf("product %s: current_stock=%d, warehouse sum=%d", r.ID, r.CurrentStock, r.Total)
		}
	}
}
