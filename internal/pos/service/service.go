package service

import (
	"github.com/bitfantasy/nimo-pos/internal/pos/events"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services POS 服务集合
type Services struct {
	Catalog  *CatalogService
	Customer *CustomerService
	Stock    *StockLedger
	Orders   *OrderEngine
	Alerts   *AlertService
	Activity *ActivityService
	Events   *events.Hub
}

// Options 可选依赖，Cache、Archive 和 Events 为 nil 时不启用
type Options struct {
	Logger         *zap.Logger
	Cache          *SnapshotCache
	Archive        *InvoiceArchive
	Events         *events.Hub
	DefaultTaxRate decimal.Decimal
}

func NewServices(repos *repository.Repositories, db *gorm.DB, opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	activity := NewActivityService(repos)
	alerts := NewAlertService(db, repos, activity, logger)
	alerts.events = opts.Events
	ledger := NewStockLedger(db, repos, alerts, activity, opts.Cache, logger)
	ledger.events = opts.Events
	orders := NewOrderEngine(db, repos, ledger, alerts, activity, opts.Cache, opts.Archive, opts.DefaultTaxRate, logger)
	orders.events = opts.Events

	return &Services{
		Catalog:  NewCatalogService(db, repos, ledger, activity, opts.Cache, logger),
		Customer: NewCustomerService(db, repos),
		Stock:    ledger,
		Orders:   orders,
		Alerts:   alerts,
		Activity: activity,
		Events:   opts.Events,
	}
}
