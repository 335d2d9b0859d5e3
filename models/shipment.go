package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Shipment struct {
	ID           int             `gorm:"primary_key" json:"id"`
	OrderId      int             `gorm:"index;not null" json:"order_id"`
	ReceivedQty  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"received_qty"`
	ShipmentDate time.Time       `gorm:"not null" json:"shipment_date"`
	ChallanNo    string          `gorm:"size:100" json:"challan_no"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewShipment struct {
	OrderId      int             `json:"order_id" validate:"required,gt=0"`
	ReceivedQty  decimal.Decimal `json:"received_qty"`
	ShipmentDate time.Time       `json:"shipment_date"`
	ChallanNo    string          `json:"challan_no" validate:"max=100"`
}

// the order of a shipment cannot change; delete and re-create instead
type ShipmentPatch struct {
	ReceivedQty  *decimal.Decimal `json:"received_qty"`
	ShipmentDate *time.Time       `json:"shipment_date"`
	ChallanNo    *string          `json:"challan_no" validate:"omitempty,max=100"`
}

func CreateShipment(ctx context.Context, input *NewShipment) (_ *Shipment, err error) {
	ctx, span := startSpan(ctx, "CreateShipment")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateNonNegative(utils.DecimalField{Name: "received_qty", Value: input.ReceivedQty}); err != nil {
		return nil, err
	}
	shipment := Shipment{
		OrderId:      input.OrderId,
		ReceivedQty:  input.ReceivedQty,
		ShipmentDate: input.ShipmentDate,
		ChallanNo:    input.ChallanNo,
	}
	if shipment.ShipmentDate.IsZero() {
		shipment.ShipmentDate = time.Now()
	}
	err = runInTx(ctx, "CreateShipment", func(tx *gorm.DB) error {
		order, err := lockDealOrder(tx, input.OrderId)
		if err != nil {
			return err
		}
		if err := tx.Create(&shipment).Error; err != nil {
			return err
		}
		if err := applyReceivedQty(tx, order, shipment.ReceivedQty); err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, shipment.ID, "shipments", nil, shipment, "Created Shipment")
	})
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func UpdateShipment(ctx context.Context, id int, input *ShipmentPatch) (_ *Shipment, err error) {
	ctx, span := startSpan(ctx, "UpdateShipment")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.ReceivedQty != nil {
		if err := utils.ValidateNonNegative(utils.DecimalField{Name: "received_qty", Value: *input.ReceivedQty}); err != nil {
			return nil, err
		}
	}
	var result Shipment
	err = runInTx(ctx, "UpdateShipment", func(tx *gorm.DB) error {
		existing, err := utils.FetchModelForUpdate[Shipment](tx, id)
		if err != nil {
			return err
		}
		order, err := lockDealOrder(tx, existing.OrderId)
		if err != nil {
			return err
		}
		updated := *existing
		if input.ReceivedQty != nil {
			updated.ReceivedQty = *input.ReceivedQty
		}
		if input.ShipmentDate != nil {
			updated.ShipmentDate = *input.ShipmentDate
		}
		if input.ChallanNo != nil {
			updated.ChallanNo = *input.ChallanNo
		}
		delta := updated.ReceivedQty.Sub(existing.ReceivedQty)
		if !delta.IsZero() {
			if err := applyReceivedQty(tx, order, delta); err != nil {
				return err
			}
		}
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		result = updated
		return createHistory(tx, HistoryActionUpdate, id, "shipments", existing, updated, "Updated Shipment")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func DeleteShipment(ctx context.Context, id int) (_ *Shipment, err error) {
	ctx, span := startSpan(ctx, "DeleteShipment")
	defer func() { endSpan(span, err) }()

	var result Shipment
	err = runInTx(ctx, "DeleteShipment", func(tx *gorm.DB) error {
		shipment, err := utils.FetchModelForUpdate[Shipment](tx, id)
		if err != nil {
			return err
		}
		count, err := utils.CountWhere[ProductDetail](tx, "shipment_id = ?", id)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.NewConflictError("shipment %d is referenced by product details", id)
		}
		order, err := lockDealOrder(tx, shipment.OrderId)
		if err != nil {
			return err
		}
		if err := applyReceivedQty(tx, order, shipment.ReceivedQty.Neg()); err != nil {
			return err
		}
		if err := tx.Delete(shipment).Error; err != nil {
			return err
		}
		result = *shipment
		return createHistory(tx, HistoryActionDelete, id, "shipments", shipment, nil, "Deleted Shipment")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
