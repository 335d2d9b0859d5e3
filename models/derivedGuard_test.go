package models_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/models"
	"github.com/stretchr/testify/require"
)

func TestDerivedColumnsRejectDirectWrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext()
	invoice := seedInvoice(t, ctx, "1000")
	order := seedOrder(t, ctx, "10")

	err := db.WithContext(ctx).Model(&models.Invoice{ID: invoice.ID}).Update("paid_amount", dec("1000")).Error
	require.Error(t, err)
	require.True(t, errors.Is(err, config.ErrDerivedColumnWrite))

	err = db.WithContext(ctx).Model(&models.Invoice{ID: invoice.ID}).Update("status", models.InvoiceStatusPaid).Error
	require.True(t, errors.Is(err, config.ErrDerivedColumnWrite))

	err = db.WithContext(ctx).Model(&models.DealOrder{ID: order.ID}).Updates(map[string]interface{}{"total_returned_qty": dec("3")}).Error
	require.True(t, errors.Is(err, config.ErrDerivedColumnWrite))

	err = db.WithContext(ctx).Model(&models.Machine{ID: 1}).Update("status", models.MachineStatusAvailable).Error
	require.True(t, errors.Is(err, config.ErrDerivedColumnWrite))

	stored := reloadInvoice(t, db, invoice.ID)
	stored.Notes = "rewritten"
	err = db.WithContext(ctx).Save(stored).Error
	require.True(t, errors.Is(err, config.ErrDerivedColumnWrite))

	// plain columns stay writable
	require.NoError(t, db.WithContext(ctx).Model(&models.Invoice{ID: invoice.ID}).Update("notes", "checked").Error)

	got := reloadInvoice(t, db, invoice.ID)
	requireDecimal(t, "0", got.PaidAmount)
	require.Equal(t, models.InvoiceStatusUnpaid, got.Status)
	require.Equal(t, "checked", got.Notes)
}

func TestDerivedGuardCanBeDisabled(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext()
	order := seedOrder(t, ctx, "10")

	t.Setenv("STRICT_DERIVED_GUARD", "false")
	require.NoError(t, db.WithContext(ctx).Model(&models.DealOrder{ID: order.ID}).Update("total_returned_qty", dec("4")).Error)
	requireDecimal(t, "4", reloadOrder(t, db, order.ID).TotalReturnedQty)
}
