package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/bitfantasy/nimo-pos/internal/pos/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svcs := NewServices(repository.NewRepositories(db), db, Options{
		Logger:         zaptest.NewLogger(t),
		DefaultTaxRate: decimal.NewFromInt(14),
	})
	return svcs, db
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func submit(t *testing.T, svcs *Services, customerID string, lines ...DraftLine) (*entity.Invoice, *Draft, error) {
	t.Helper()
	d := NewDraft("cashier-1")
	require.NoError(t, d.SetCustomer(customerID))
	for _, l := range lines {
		require.NoError(t, d.AddLine(l))
	}
	inv, err := svcs.Orders.SubmitOrder(context.Background(), d)
	return inv, d, err
}

func repositoryParams(actionType string) repository.ActivityLogListParams {
	return repository.ActivityLogListParams{ActionType: actionType, Size: 100}
}
