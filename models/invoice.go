package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ProcessId          int             `gorm:"index;not null" json:"process_id"`
	InvoiceNo          string          `gorm:"size:100;not null" json:"invoice_no"`
	SequenceNo         int64           `gorm:"uniqueIndex;not null" json:"sequence_no"`
	InvoiceDate        time.Time       `gorm:"not null" json:"invoice_date"`
	BaseAmount         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"base_amount"`
	DoubleDyeing       bool            `gorm:"not null;default:false" json:"double_dyeing"`
	DoubleDyeingCharge decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"double_dyeing_charge"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	PaidAmount         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"paid_amount"`
	Status             InvoiceStatus   `gorm:"type:varchar(20);not null;default:Unpaid" json:"status"`
	Notes              string          `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewInvoice has no status or paid amount; both come from the payment ledger.
type NewInvoice struct {
	ProcessId          int              `json:"process_id" validate:"required,gt=0"`
	InvoiceNo          string           `json:"invoice_no" validate:"max=100"`
	InvoiceDate        time.Time        `json:"invoice_date"`
	BaseAmount         decimal.Decimal  `json:"base_amount"`
	DoubleDyeing       bool             `json:"double_dyeing"`
	DoubleDyeingCharge *decimal.Decimal `json:"double_dyeing_charge"`
	Notes              string           `json:"notes"`
}

type InvoicePatch struct {
	InvoiceDate        *time.Time       `json:"invoice_date"`
	BaseAmount         *decimal.Decimal `json:"base_amount"`
	DoubleDyeing       *bool            `json:"double_dyeing"`
	DoubleDyeingCharge *decimal.Decimal `json:"double_dyeing_charge"`
	Notes              *string          `json:"notes"`
}

// InvoiceStatusFor: Paid iff paid >= amount, Partially Paid iff 0 < paid < amount.
func InvoiceStatusFor(paid decimal.Decimal, amount decimal.Decimal) InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(amount):
		return InvoiceStatusPaid
	case paid.IsPositive():
		return InvoiceStatusPartiallyPaid
	default:
		return InvoiceStatusUnpaid
	}
}

// invoice total = base + double dyeing charge (when double dyed)
func invoiceAmount(base decimal.Decimal, doubleDyeing bool, charge decimal.Decimal) (decimal.Decimal, error) {
	if err := utils.ValidateNonNegative(
		utils.DecimalField{Name: "base_amount", Value: base},
		utils.DecimalField{Name: "double_dyeing_charge", Value: charge},
	); err != nil {
		return decimal.Zero, err
	}
	amount := base
	if doubleDyeing {
		amount = amount.Add(charge)
	}
	if !amount.IsPositive() {
		return decimal.Zero, utils.NewValidationError("invoice amount must be greater than 0")
	}
	return amount, nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (_ *Invoice, err error) {
	ctx, span := startSpan(ctx, "CreateInvoice")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	charge := decimal.Zero
	if input.DoubleDyeing {
		charge = config.DefaultDoubleDyeingCharge()
		if input.DoubleDyeingCharge != nil {
			charge = *input.DoubleDyeingCharge
		}
	}
	amount, err := invoiceAmount(input.BaseAmount, input.DoubleDyeing, charge)
	if err != nil {
		return nil, err
	}
	invoice := Invoice{
		ProcessId:          input.ProcessId,
		InvoiceNo:          input.InvoiceNo,
		InvoiceDate:        input.InvoiceDate,
		BaseAmount:         input.BaseAmount,
		DoubleDyeing:       input.DoubleDyeing,
		DoubleDyeingCharge: charge,
		Amount:             amount,
		PaidAmount:         decimal.Zero,
		Status:             InvoiceStatusUnpaid,
		Notes:              input.Notes,
	}
	if invoice.InvoiceDate.IsZero() {
		invoice.InvoiceDate = time.Now()
	}
	err = runInTx(ctx, "CreateInvoice", func(tx *gorm.DB) error {
		if err := utils.ValidateResourceId[DyeingProcess](tx, input.ProcessId); err != nil {
			return err
		}
		seqNo, err := utils.GetSequence[Invoice](ctx, tx)
		if err != nil {
			return err
		}
		invoice.SequenceNo = seqNo
		if invoice.InvoiceNo == "" {
			invoice.InvoiceNo = fmt.Sprintf("INV-%06d", seqNo)
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, invoice.ID, "invoices", nil, invoice, "Created Invoice")
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateInvoice may change the total, but never below what is already paid.
func UpdateInvoice(ctx context.Context, id int, input *InvoicePatch) (_ *Invoice, err error) {
	ctx, span := startSpan(ctx, "UpdateInvoice")
	defer func() { endSpan(span, err) }()

	var result Invoice
	err = runInTx(ctx, "UpdateInvoice", func(tx *gorm.DB) error {
		existing, err := utils.FetchModelForUpdate[Invoice](tx, id)
		if err != nil {
			return err
		}
		updated := *existing
		if input.InvoiceDate != nil {
			updated.InvoiceDate = *input.InvoiceDate
		}
		if input.Notes != nil {
			updated.Notes = *input.Notes
		}
		if input.BaseAmount != nil {
			updated.BaseAmount = *input.BaseAmount
		}
		if input.DoubleDyeing != nil {
			updated.DoubleDyeing = *input.DoubleDyeing
			if updated.DoubleDyeing && !existing.DoubleDyeing && input.DoubleDyeingCharge == nil {
				updated.DoubleDyeingCharge = config.DefaultDoubleDyeingCharge()
			}
		}
		if input.DoubleDyeingCharge != nil {
			updated.DoubleDyeingCharge = *input.DoubleDyeingCharge
		}
		if !updated.DoubleDyeing {
			updated.DoubleDyeingCharge = decimal.Zero
		}
		updated.Amount, err = invoiceAmount(updated.BaseAmount, updated.DoubleDyeing, updated.DoubleDyeingCharge)
		if err != nil {
			return err
		}
		if updated.Amount.LessThan(existing.PaidAmount) {
			return utils.NewConflictError("invoice amount %s is less than paid amount %s",
				updated.Amount.String(), existing.PaidAmount.String())
		}
		updated.Status = InvoiceStatusFor(updated.PaidAmount, updated.Amount)
		if err := ownedBy(tx, config.ReconcilerLedger).Save(&updated).Error; err != nil {
			return err
		}
		result = updated
		return createHistory(tx, HistoryActionUpdate, id, "invoices", existing, updated, "Updated Invoice")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func DeleteInvoice(ctx context.Context, id int) (_ *Invoice, err error) {
	ctx, span := startSpan(ctx, "DeleteInvoice")
	defer func() { endSpan(span, err) }()

	var result Invoice
	err = runInTx(ctx, "DeleteInvoice", func(tx *gorm.DB) error {
		invoice, err := utils.FetchModelForUpdate[Invoice](tx, id)
		if err != nil {
			return err
		}
		if invoice.Status != InvoiceStatusUnpaid {
			return utils.NewConflictError("invoice %d is %s and cannot be deleted", id, invoice.Status)
		}
		if err := tx.Delete(invoice).Error; err != nil {
			return err
		}
		result = *invoice
		return createHistory(tx, HistoryActionDelete, id, "invoices", invoice, nil, "Deleted Invoice")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	return utils.FetchModel[Invoice](ctx, id)
}

// applyInvoicePaid is the only writer of Invoice.paidAmount and Invoice.status.
// The invoice must already be locked by the caller.
func applyInvoicePaid(tx *gorm.DB, invoice *Invoice, paid decimal.Decimal) error {
	if paid.IsNegative() {
		return utils.NewConflictError("invoice %d ledger out of balance: paid amount would become %s", invoice.ID, paid.String())
	}
	if paid.GreaterThan(invoice.Amount) {
		return utils.NewConflictError("payment exceeds invoice total: paid %s of %s", paid.String(), invoice.Amount.String())
	}
	status := InvoiceStatusFor(paid, invoice.Amount)
	if err := ownedBy(tx, config.ReconcilerLedger).
		Model(&Invoice{ID: invoice.ID}).
		Updates(map[string]interface{}{"paid_amount": paid, "status": status}).Error; err != nil {
		return err
	}
	invoice.PaidAmount = paid
	invoice.Status = status
	return nil
}

type InvoiceLedgerCheck struct {
	InvoiceId      int             `json:"invoice_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	SumPayments    decimal.Decimal `json:"sum_payments"`
	Status         InvoiceStatus   `json:"status"`
	ExpectedStatus InvoiceStatus   `json:"expected_status"`
}

func (c *InvoiceLedgerCheck) Balanced() bool {
	return c.PaidAmount.Equal(c.SumPayments) &&
		c.Status == c.ExpectedStatus &&
		!c.PaidAmount.IsNegative() &&
		c.PaidAmount.LessThanOrEqual(c.Amount)
}

// VerifyInvoiceLedger recomputes paidAmount from the payment rows.
func VerifyInvoiceLedger(ctx context.Context, invoiceId int) (*InvoiceLedgerCheck, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, invoiceId)
	if err != nil {
		return nil, err
	}
	var payments []Payment
	if err := config.GetDB().WithContext(ctx).Where("invoice_id = ?", invoiceId).Find(&payments).Error; err != nil {
		return nil, err
	}
	check := InvoiceLedgerCheck{
		InvoiceId:   invoiceId,
		Amount:      invoice.Amount,
		PaidAmount:  invoice.PaidAmount,
		SumPayments: decimal.Zero,
		Status:      invoice.Status,
	}
	for _, p := range payments {
		check.SumPayments = check.SumPayments.Add(p.Amount)
	}
	check.ExpectedStatus = InvoiceStatusFor(check.SumPayments, invoice.Amount)
	return &check, nil
}
