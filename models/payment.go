package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Payment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Method      PaymentMethod   `gorm:"type:varchar(20);not null;default:Cash" json:"method"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	ReferenceNo string          `gorm:"size:100" json:"reference_no"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	InvoiceId   int             `json:"invoice_id" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	PaymentDate time.Time       `json:"payment_date"`
	ReferenceNo string          `json:"reference_no" validate:"max=100"`
	Notes       string          `json:"notes"`
}

// a payment stays on its invoice; move it by delete and re-create
type PaymentPatch struct {
	Amount      *decimal.Decimal `json:"amount"`
	Method      *PaymentMethod   `json:"method"`
	PaymentDate *time.Time       `json:"payment_date"`
	ReferenceNo *string          `json:"reference_no" validate:"omitempty,max=100"`
	Notes       *string          `json:"notes"`
}

func validatePaymentAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return utils.NewValidationError("payment amount must be greater than 0")
	}
	return nil
}

func validatePaymentMethod(method PaymentMethod) error {
	if !method.IsValid() {
		return utils.NewValidationError("invalid payment method %q", method)
	}
	return nil
}

func CreatePayment(ctx context.Context, input *NewPayment) (_ *Payment, err error) {
	ctx, span := startSpan(ctx, "CreatePayment")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := validatePaymentAmount(input.Amount); err != nil {
		return nil, err
	}
	payment := Payment{
		InvoiceId:   input.InvoiceId,
		Amount:      input.Amount,
		Method:      input.Method,
		PaymentDate: input.PaymentDate,
		ReferenceNo: input.ReferenceNo,
		Notes:       input.Notes,
	}
	if payment.Method == "" {
		payment.Method = PaymentMethodCash
	}
	if err := validatePaymentMethod(payment.Method); err != nil {
		return nil, err
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now()
	}
	err = runInTx(ctx, "CreatePayment", func(tx *gorm.DB) error {
		invoice, err := utils.FetchModelForUpdate[Invoice](tx, input.InvoiceId)
		if err != nil {
			return err
		}
		if err := applyInvoicePaid(tx, invoice, invoice.PaidAmount.Add(payment.Amount)); err != nil {
			return err
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, payment.ID, "payments", nil, payment, "Created Payment")
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func UpdatePayment(ctx context.Context, id int, input *PaymentPatch) (_ *Payment, err error) {
	ctx, span := startSpan(ctx, "UpdatePayment")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Amount != nil {
		if err := validatePaymentAmount(*input.Amount); err != nil {
			return nil, err
		}
	}
	if input.Method != nil {
		if err := validatePaymentMethod(*input.Method); err != nil {
			return nil, err
		}
	}
	var result Payment
	err = runInTx(ctx, "UpdatePayment", func(tx *gorm.DB) error {
		existing, err := utils.FetchModelForUpdate[Payment](tx, id)
		if err != nil {
			return err
		}
		invoice, err := utils.FetchModelForUpdate[Invoice](tx, existing.InvoiceId)
		if err != nil {
			return err
		}
		updated := *existing
		if input.Amount != nil {
			updated.Amount = *input.Amount
		}
		if input.Method != nil {
			updated.Method = *input.Method
		}
		if input.PaymentDate != nil {
			updated.PaymentDate = *input.PaymentDate
		}
		if input.ReferenceNo != nil {
			updated.ReferenceNo = *input.ReferenceNo
		}
		if input.Notes != nil {
			updated.Notes = *input.Notes
		}
		if delta := updated.Amount.Sub(existing.Amount); !delta.IsZero() {
			if err := applyInvoicePaid(tx, invoice, invoice.PaidAmount.Add(delta)); err != nil {
				return err
			}
		}
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		result = updated
		return createHistory(tx, HistoryActionUpdate, id, "payments", existing, updated, "Updated Payment")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func DeletePayment(ctx context.Context, id int) (_ *Payment, err error) {
	ctx, span := startSpan(ctx, "DeletePayment")
	defer func() { endSpan(span, err) }()

	var result Payment
	err = runInTx(ctx, "DeletePayment", func(tx *gorm.DB) error {
		payment, err := utils.FetchModelForUpdate[Payment](tx, id)
		if err != nil {
			return err
		}
		invoice, err := utils.FetchModelForUpdate[Invoice](tx, payment.InvoiceId)
		if err != nil {
			return err
		}
		if err := applyInvoicePaid(tx, invoice, invoice.PaidAmount.Sub(payment.Amount)); err != nil {
			return err
		}
		if err := tx.Delete(payment).Error; err != nil {
			return err
		}
		result = *payment
		return createHistory(tx, HistoryActionDelete, id, "payments", payment, nil, "Deleted Payment")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
