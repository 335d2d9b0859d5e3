package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/sirupsen/logrus"
)

type ReconciliationSummary struct {
	CorrelationId   string `json:"correlation_id"`
	InvoicesChecked int    `json:"invoices_checked"`
	OrdersChecked   int    `json:"orders_checked"`
	MachinesChecked int    `json:"machines_checked"`
	MismatchesFound int    `json:"mismatches_found"`
}

// RunReconciliationChecks recomputes every derived column from its source
// records and writes one reconciliation_reports row per mismatch.
// Nothing is repaired here.
func RunReconciliationChecks(ctx context.Context) (_ *ReconciliationSummary, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := startSpan(ctx, "RunReconciliationChecks")
	defer func() { endSpan(span, err) }()

	db := config.GetDB()
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	logger := config.GetLogger()

	cid, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || cid == "" {
		cid = uuid.NewString()
	}
	summary := ReconciliationSummary{CorrelationId: cid}
	now := time.Now().UTC()

	report := func(checkType string, entityType string, entityId int, details string) error {
		summary.MismatchesFound++
		return db.WithContext(ctx).Create(&ReconciliationReport{
			CheckType:     checkType,
			EntityType:    entityType,
			EntityId:      entityId,
			Details:       details,
			CorrelationId: cid,
			CreatedAt:     now,
		}).Error
	}

	// 1) invoice paid amount / status vs payments
	var invoiceIds []int
	if err := db.WithContext(ctx).Model(&Invoice{}).Order("id").Pluck("id", &invoiceIds).Error; err != nil {
		return nil, err
	}
	for _, id := range invoiceIds {
		check, err := VerifyInvoiceLedger(ctx, id)
		if err != nil {
			return nil, err
		}
		summary.InvoicesChecked++
		if check.Balanced() {
			continue
		}
		if err := report(CheckInvoiceLedger, "Invoice", id, fmt.Sprintf(
			"paid_amount=%s sum(payments.amount)=%s amount=%s status=%s expected=%s",
			check.PaidAmount.String(), check.SumPayments.String(), check.Amount.String(), check.Status, check.ExpectedStatus)); err != nil {
			return nil, err
		}
	}

	// 2) order received/returned totals vs shipments/returns
	var orderIds []int
	if err := db.WithContext(ctx).Model(&DealOrder{}).Order("id").Pluck("id", &orderIds).Error; err != nil {
		return nil, err
	}
	for _, id := range orderIds {
		check, err := VerifyOrderTotals(ctx, id)
		if err != nil {
			return nil, err
		}
		summary.OrdersChecked++
		if check.Balanced() {
			continue
		}
		if err := report(CheckOrderTotals, "DealOrder", id, fmt.Sprintf(
			"total_received_qty=%s sum(shipments)=%s total_returned_qty=%s sum(returns)=%s status=%s expected=%s",
			check.TotalReceivedQty.String(), check.SumReceivedQty.String(),
			check.TotalReturnedQty.String(), check.SumReturnedQty.String(),
			check.Status, check.ExpectedStatus)); err != nil {
			return nil, err
		}
	}

	// 3) machine Busy iff exactly one In Progress process
	checks, err := VerifyMachineAllocations(ctx)
	if err != nil {
		return nil, err
	}
	for _, check := range checks {
		summary.MachinesChecked++
		if check.Consistent() {
			continue
		}
		if err := report(CheckMachineAllocation, "Machine", check.MachineId, fmt.Sprintf(
			"status=%s in_progress_processes=%d", check.Status, check.InProgressCount)); err != nil {
			return nil, err
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":            "ReconciliationChecks",
			"correlation_id":   cid,
			"invoices_checked": summary.InvoicesChecked,
			"orders_checked":   summary.OrdersChecked,
			"machines_checked": summary.MachinesChecked,
			"mismatches":       summary.MismatchesFound,
		}).Info("reconciliation checks completed")
	}
	return &summary, nil
}

type MachineAllocationCheck struct {
	MachineId       int           `json:"machine_id"`
	Status          MachineStatus `json:"status"`
	InProgressCount int64         `json:"in_progress_count"`
}

// Busy iff exactly one In Progress process references the machine.
func (c *MachineAllocationCheck) Consistent() bool {
	if c.Status == MachineStatusBusy {
		return c.InProgressCount == 1
	}
	return c.InProgressCount == 0
}

func VerifyMachineAllocations(ctx context.Context) ([]*MachineAllocationCheck, error) {
	db := config.GetDB().WithContext(ctx)
	var machines []Machine
	if err := db.Order("id").Find(&machines).Error; err != nil {
		return nil, err
	}
	type countRow struct {
		MachineId int
		Total     int64
	}
	var rows []countRow
	if err := db.Model(&DyeingProcess{}).
		Select("machine_id, count(*) as total").
		Where("status = ?", DyeingProcessStatusInProgress).
		Group("machine_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[int]int64, len(rows))
	for _, r := range rows {
		counts[r.MachineId] = r.Total
	}
	results := make([]*MachineAllocationCheck, 0, len(machines))
	for _, m := range machines {
		results = append(results, &MachineAllocationCheck{
			MachineId:       m.ID,
			Status:          m.Status,
			InProgressCount: counts[m.ID],
		})
	}
	return results, nil
}
