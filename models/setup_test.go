package models_test

import (
	"context"
	"testing"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/models"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB installs a fresh in-memory database as the global handle.
// One connection keeps every statement on the same memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := config.OpenDatabase(sqlite.Open("file::memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.MigrateTable(db))

	prevDB := config.GetDB()
	config.SetDB(db)
	config.SetRedisDB(nil)
	t.Cleanup(func() {
		config.SetDB(prevDB)
		_ = sqlDB.Close()
	})
	return db
}

func testContext() context.Context {
	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetCorrelationIdInContext(ctx, "test-correlation")
	return ctx
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func seedOrder(t *testing.T, ctx context.Context, bookingQty string) *models.DealOrder {
	t.Helper()
	deal, err := models.CreateDeal(ctx, &models.NewDeal{ClientName: "Golden Thread Co"})
	require.NoError(t, err)
	order, err := models.CreateDealOrder(ctx, &models.NewDealOrder{
		DealId:     deal.ID,
		OrderNo:    "ORD-1",
		BookingQty: dec(bookingQty),
	})
	require.NoError(t, err)
	return order
}

func seedProductDetail(t *testing.T, ctx context.Context) *models.ProductDetail {
	t.Helper()
	order := seedOrder(t, ctx, "1000")
	detail, err := models.CreateProductDetail(ctx, &models.NewProductDetail{
		OrderId:    order.ID,
		Color:      "Navy",
		FabricType: "Cotton Jersey",
		Qty:        dec("250"),
	})
	require.NoError(t, err)
	return detail
}

func seedMachine(t *testing.T, ctx context.Context, name string) *models.Machine {
	t.Helper()
	machine, err := models.CreateMachine(ctx, &models.NewMachine{Name: name, Capacity: dec("500")})
	require.NoError(t, err)
	require.Equal(t, models.MachineStatusAvailable, machine.Status)
	return machine
}

func seedProcess(t *testing.T, ctx context.Context, machineId int) *models.DyeingProcess {
	t.Helper()
	detail := seedProductDetail(t, ctx)
	process, err := models.CreateDyeingProcess(ctx, &models.NewDyeingProcess{
		ProductDetailId: detail.ID,
		MachineId:       machineId,
		BatchQty:        dec("200"),
		GreyWeight:      dec("100"),
		FinishWeight:    dec("90"),
	})
	require.NoError(t, err)
	return process
}

func seedInvoice(t *testing.T, ctx context.Context, amount string) *models.Invoice {
	t.Helper()
	machine := seedMachine(t, ctx, "Invoice Jet")
	process := seedProcess(t, ctx, machine.ID)
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ProcessId:  process.ID,
		BaseAmount: dec(amount),
	})
	require.NoError(t, err)
	return invoice
}

func reloadMachine(t *testing.T, db *gorm.DB, id int) *models.Machine {
	t.Helper()
	var m models.Machine
	require.NoError(t, db.First(&m, id).Error)
	return &m
}

func reloadInvoice(t *testing.T, db *gorm.DB, id int) *models.Invoice {
	t.Helper()
	var inv models.Invoice
	require.NoError(t, db.First(&inv, id).Error)
	return &inv
}

func reloadOrder(t *testing.T, db *gorm.DB, id int) *models.DealOrder {
	t.Helper()
	var o models.DealOrder
	require.NoError(t, db.First(&o, id).Error)
	return &o
}

func requireLedgerBalanced(t *testing.T, ctx context.Context, invoiceId int) {
	t.Helper()
	check, err := models.VerifyInvoiceLedger(ctx, invoiceId)
	require.NoError(t, err)
	require.Truef(t, check.Balanced(), "ledger out of balance: %+v", check)
}

func requireOrderBalanced(t *testing.T, ctx context.Context, orderId int) {
	t.Helper()
	check, err := models.VerifyOrderTotals(ctx, orderId)
	require.NoError(t, err)
	require.Truef(t, check.Balanced(), "order totals drifted: %+v", check)
}
