package models_test

import (
	"testing"

	"github.com/mmdatafocus/dyeing_backend/models"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestInvoiceStatusFor(t *testing.T) {
	cases := []struct {
		paid, amount string
		expected     models.InvoiceStatus
	}{
		{"0", "1000", models.InvoiceStatusUnpaid},
		{"0.01", "1000", models.InvoiceStatusPartiallyPaid},
		{"999.99", "1000", models.InvoiceStatusPartiallyPaid},
		{"1000", "1000", models.InvoiceStatusPaid},
	}
	for _, tc := range cases {
		got := models.InvoiceStatusFor(dec(tc.paid), dec(tc.amount))
		if got != tc.expected {
			t.Fatalf("InvoiceStatusFor(%s, %s) expected %s, got %s", tc.paid, tc.amount, tc.expected, got)
		}
	}
}

func TestPaymentsDriveInvoiceStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext()
	invoice := seedInvoice(t, ctx, "1000")
	require.Equal(t, models.InvoiceStatusUnpaid, invoice.Status)
	requireDecimal(t, "0", invoice.PaidAmount)

	_, err := models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("400")})
	require.NoError(t, err)
	got := reloadInvoice(t, db, invoice.ID)
	requireDecimal(t, "400", got.PaidAmount)
	require.Equal(t, models.InvoiceStatusPartiallyPaid, got.Status)

	_, err = models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("600"), Method: models.PaymentMethodBankTransfer})
	require.NoError(t, err)
	got = reloadInvoice(t, db, invoice.ID)
	requireDecimal(t, "1000", got.PaidAmount)
	require.Equal(t, models.InvoiceStatusPaid, got.Status)

	_, err = models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("1")})
	require.Error(t, err)
	require.True(t, utils.IsConflict(err))
	require.Contains(t, err.Error(), "exceeds invoice total")

	got = reloadInvoice(t, db, invoice.ID)
	requireDecimal(t, "1000", got.PaidAmount)
	require.Equal(t, models.InvoiceStatusPaid, got.Status)
	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Where("invoice_id = ?", invoice.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
	requireLedgerBalanced(t, ctx, invoice.ID)
}

func TestCreatePaymentRejectsInvalidInput(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	invoice := seedInvoice(t, ctx, "500")

	_, err := models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("0")})
	require.True(t, utils.IsValidation(err))

	_, err = models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("-5")})
	require.True(t, utils.IsValidation(err))

	_, err = models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("5"), Method: models.PaymentMethod("Barter")})
	require.True(t, utils.IsValidation(err))

	_, err = models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID + 100, Amount: dec("5")})
	require.True(t, utils.IsNotFound(err))

	requireLedgerBalanced(t, ctx, invoice.ID)
}

func TestUpdateAndDeletePaymentKeepLedger(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext()
	invoice := seedInvoice(t, ctx, "1000")

	p1, err := models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("300")})
	require.NoError(t, err)
	require.Equal(t, models.PaymentMethodCash, p1.Method)
	p2, err := models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("200")})
	require.NoError(t, err)

	// raise p1 so the invoice is fully paid
	_, err = models.UpdatePayment(ctx, p1.ID, &models.PaymentPatch{Amount: decPtr("800")})
	require.NoError(t, err)
	got := reloadInvoice(t, db, invoice.ID)
	requireDecimal(t, "1000", got.PaidAmount)
	require.Equal(t, models.InvoiceStatusPaid, got.Status)
	requireLedgerBalanced(t, ctx, invoice.ID)

	// overshoot is rejected and nothing moves
	_, err = models.UpdatePayment(ctx, p2.ID, &models.PaymentPatch{Amount: decPtr("201")})
	require.True(t, utils.IsConflict(err))
	var stored models.Payment
	require.NoError(t, db.First(&stored, p2.ID).Error)
	requireDecimal(t, "200", stored.Amount)
	requireDecimal(t, "1000", reloadInvoice(t, db, invoice.ID).PaidAmount)

	// lower p1, partially paid again
	_, err = models.UpdatePayment(ctx, p1.ID, &models.PaymentPatch{Amount: decPtr("100")})
	require.NoError(t, err)
	got = reloadInvoice(t, db, invoice.ID)
	requireDecimal(t, "300", got.PaidAmount)
	require.Equal(t, models.InvoiceStatusPartiallyPaid, got.Status)
	requireLedgerBalanced(t, ctx, invoice.ID)

	_, err = models.DeletePayment(ctx, p1.ID)
	require.NoError(t, err)
	_, err = models.DeletePayment(ctx, p2.ID)
	require.NoError(t, err)
	got = reloadInvoice(t, db, invoice.ID)
	requireDecimal(t, "0", got.PaidAmount)
	require.Equal(t, models.InvoiceStatusUnpaid, got.Status)
	requireLedgerBalanced(t, ctx, invoice.ID)

	_, err = models.DeletePayment(ctx, p1.ID)
	require.True(t, utils.IsNotFound(err))
}

func TestDeleteInvoiceOnlyWhileUnpaid(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext()

	partial := seedInvoice(t, ctx, "1000")
	_, err := models.CreatePayment(ctx, &models.NewPayment{InvoiceId: partial.ID, Amount: dec("250")})
	require.NoError(t, err)

	_, err = models.DeleteInvoice(ctx, partial.ID)
	require.Error(t, err)
	require.True(t, utils.IsConflict(err))
	require.Equal(t, models.InvoiceStatusPartiallyPaid, reloadInvoice(t, db, partial.ID).Status)

	unpaid := seedInvoice(t, ctx, "700")
	deleted, err := models.DeleteInvoice(ctx, unpaid.ID)
	require.NoError(t, err)
	require.Equal(t, unpaid.ID, deleted.ID)

	_, err = models.GetInvoice(ctx, unpaid.ID)
	require.True(t, utils.IsNotFound(err))
}

func TestCreateInvoiceAmounts(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	machine := seedMachine(t, ctx, "Jet 7")
	process := seedProcess(t, ctx, machine.ID)

	t.Setenv("DEFAULT_DOUBLE_DYEING_CHARGE", "150")

	withDefault, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ProcessId:    process.ID,
		BaseAmount:   dec("1000"),
		DoubleDyeing: true,
	})
	require.NoError(t, err)
	requireDecimal(t, "150", withDefault.DoubleDyeingCharge)
	requireDecimal(t, "1150", withDefault.Amount)
	require.Equal(t, models.InvoiceStatusUnpaid, withDefault.Status)
	require.NotEmpty(t, withDefault.InvoiceNo)

	explicit, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ProcessId:          process.ID,
		BaseAmount:         dec("1000"),
		DoubleDyeing:       true,
		DoubleDyeingCharge: decPtr("75.5"),
	})
	require.NoError(t, err)
	requireDecimal(t, "1075.5", explicit.Amount)
	require.Greater(t, explicit.SequenceNo, withDefault.SequenceNo)

	single, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ProcessId:          process.ID,
		BaseAmount:         dec("1000"),
		DoubleDyeingCharge: decPtr("75.5"),
	})
	require.NoError(t, err)
	requireDecimal(t, "1000", single.Amount)
	requireDecimal(t, "0", single.DoubleDyeingCharge)

	_, err = models.CreateInvoice(ctx, &models.NewInvoice{ProcessId: process.ID, BaseAmount: decimal.Zero})
	require.True(t, utils.IsValidation(err))

	_, err = models.CreateInvoice(ctx, &models.NewInvoice{ProcessId: process.ID + 100, BaseAmount: dec("10")})
	require.True(t, utils.IsNotFound(err))
}

func TestUpdateInvoiceCannotDropBelowPaid(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext()
	invoice := seedInvoice(t, ctx, "1000")
	_, err := models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: dec("600")})
	require.NoError(t, err)

	_, err = models.UpdateInvoice(ctx, invoice.ID, &models.InvoicePatch{BaseAmount: decPtr("500")})
	require.True(t, utils.IsConflict(err))
	requireDecimal(t, "1000", reloadInvoice(t, db, invoice.ID).Amount)

	updated, err := models.UpdateInvoice(ctx, invoice.ID, &models.InvoicePatch{BaseAmount: decPtr("600")})
	require.NoError(t, err)
	requireDecimal(t, "600", updated.Amount)
	require.Equal(t, models.InvoiceStatusPaid, updated.Status)
	require.Equal(t, models.InvoiceStatusPaid, reloadInvoice(t, db, invoice.ID).Status)
	requireLedgerBalanced(t, ctx, invoice.ID)
}

func TestInvoiceSequenceIsUnique(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext()
	invoice := seedInvoice(t, ctx, "500")
	require.Equal(t, "INV-000001", invoice.InvoiceNo)

	clash := models.Invoice{
		ProcessId:   invoice.ProcessId,
		InvoiceNo:   "INV-MANUAL",
		SequenceNo:  invoice.SequenceNo,
		InvoiceDate: invoice.InvoiceDate,
		BaseAmount:  dec("10"),
		Amount:      dec("10"),
		Status:      models.InvoiceStatusUnpaid,
	}
	require.Error(t, db.Create(&clash).Error)

	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).Where("sequence_no = ?", invoice.SequenceNo).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
