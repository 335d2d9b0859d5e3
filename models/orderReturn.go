package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderReturn is a quantity of goods handed back against a deal order.
type OrderReturn struct {
	ID          int             `gorm:"primary_key" json:"id"`
	OrderId     int             `gorm:"index;not null" json:"order_id"`
	QtyReturned decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"qty_returned"`
	ReturnDate  time.Time       `gorm:"not null" json:"return_date"`
	Reason      string          `gorm:"type:text" json:"reason"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OrderReturn) TableName() string {
	return "returns"
}

type NewReturn struct {
	OrderId     int             `json:"order_id" validate:"required,gt=0"`
	QtyReturned decimal.Decimal `json:"qty_returned"`
	ReturnDate  time.Time       `json:"return_date"`
	Reason      string          `json:"reason"`
}

type ReturnPatch struct {
	QtyReturned *decimal.Decimal `json:"qty_returned"`
	ReturnDate  *time.Time       `json:"return_date"`
	Reason      *string          `json:"reason"`
}

func CreateReturn(ctx context.Context, input *NewReturn) (_ *OrderReturn, err error) {
	ctx, span := startSpan(ctx, "CreateReturn")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateNonNegative(utils.DecimalField{Name: "qty_returned", Value: input.QtyReturned}); err != nil {
		return nil, err
	}
	ret := OrderReturn{
		OrderId:     input.OrderId,
		QtyReturned: input.QtyReturned,
		ReturnDate:  input.ReturnDate,
		Reason:      input.Reason,
	}
	if ret.ReturnDate.IsZero() {
		ret.ReturnDate = time.Now()
	}
	err = runInTx(ctx, "CreateReturn", func(tx *gorm.DB) error {
		order, err := lockDealOrder(tx, input.OrderId)
		if err != nil {
			return err
		}
		if err := applyReturnedQty(tx, order, ret.QtyReturned); err != nil {
			return err
		}
		if err := tx.Create(&ret).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, ret.ID, "returns", nil, ret, "Created Return")
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func UpdateReturn(ctx context.Context, id int, input *ReturnPatch) (_ *OrderReturn, err error) {
	ctx, span := startSpan(ctx, "UpdateReturn")
	defer func() { endSpan(span, err) }()

	if input.QtyReturned != nil {
		if err := utils.ValidateNonNegative(utils.DecimalField{Name: "qty_returned", Value: *input.QtyReturned}); err != nil {
			return nil, err
		}
	}
	var result OrderReturn
	err = runInTx(ctx, "UpdateReturn", func(tx *gorm.DB) error {
		existing, err := utils.FetchModelForUpdate[OrderReturn](tx, id)
		if err != nil {
			return err
		}
		order, err := lockDealOrder(tx, existing.OrderId)
		if err != nil {
			return err
		}
		updated := *existing
		if input.QtyReturned != nil {
			updated.QtyReturned = *input.QtyReturned
		}
		if input.ReturnDate != nil {
			updated.ReturnDate = *input.ReturnDate
		}
		if input.Reason != nil {
			updated.Reason = *input.Reason
		}
		if delta := updated.QtyReturned.Sub(existing.QtyReturned); !delta.IsZero() {
			if err := applyReturnedQty(tx, order, delta); err != nil {
				return err
			}
		}
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		result = updated
		return createHistory(tx, HistoryActionUpdate, id, "returns", existing, updated, "Updated Return")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func DeleteReturn(ctx context.Context, id int) (_ *OrderReturn, err error) {
	ctx, span := startSpan(ctx, "DeleteReturn")
	defer func() { endSpan(span, err) }()

	var result OrderReturn
	err = runInTx(ctx, "DeleteReturn", func(tx *gorm.DB) error {
		ret, err := utils.FetchModelForUpdate[OrderReturn](tx, id)
		if err != nil {
			return err
		}
		order, err := lockDealOrder(tx, ret.OrderId)
		if err != nil {
			return err
		}
		if err := applyReturnedQty(tx, order, ret.QtyReturned.Neg()); err != nil {
			return err
		}
		if err := tx.Delete(ret).Error; err != nil {
			return err
		}
		result = *ret
		return createHistory(tx, HistoryActionDelete, id, "returns", ret, nil, "Deleted Return")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
