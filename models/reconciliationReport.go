package models

import "time"

// Drift detection output (scheduled or admin-triggered).
type ReconciliationReport struct {
	ID            int       `gorm:"primary_key" json:"id"`
	CheckType     string    `gorm:"size:50;index;not null" json:"check_type"`  // e.g. INVOICE_LEDGER, ORDER_TOTALS
	EntityType    string    `gorm:"size:50;index;not null" json:"entity_type"` // e.g. Invoice, DealOrder
	EntityId      int       `gorm:"index;not null" json:"entity_id"`
	Details       string    `gorm:"type:text" json:"details"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	CheckInvoiceLedger     = "INVOICE_LEDGER"
	CheckOrderTotals       = "ORDER_TOTALS"
	CheckMachineAllocation = "MACHINE_ALLOCATION"
)
