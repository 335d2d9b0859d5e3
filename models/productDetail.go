package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductDetail struct {
	ID         int             `gorm:"primary_key" json:"id"`
	OrderId    int             `gorm:"index;not null" json:"order_id"`
	ShipmentId *int            `gorm:"index" json:"shipment_id"`
	Color      string          `gorm:"size:100" json:"color"`
	FabricType string          `gorm:"size:100" json:"fabric_type"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"qty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductDetail struct {
	OrderId    int             `json:"order_id" validate:"required,gt=0"`
	ShipmentId *int            `json:"shipment_id" validate:"omitempty,gt=0"`
	Color      string          `json:"color" validate:"max=100"`
	FabricType string          `json:"fabric_type" validate:"max=100"`
	Qty        decimal.Decimal `json:"qty"`
}

func CreateProductDetail(ctx context.Context, input *NewProductDetail) (_ *ProductDetail, err error) {
	ctx, span := startSpan(ctx, "CreateProductDetail")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateNonNegative(utils.DecimalField{Name: "qty", Value: input.Qty}); err != nil {
		return nil, err
	}
	detail := ProductDetail{
		OrderId:    input.OrderId,
		ShipmentId: input.ShipmentId,
		Color:      input.Color,
		FabricType: input.FabricType,
		Qty:        input.Qty,
	}
	err = runInTx(ctx, "CreateProductDetail", func(tx *gorm.DB) error {
		if err := utils.ValidateResourceId[DealOrder](tx, input.OrderId); err != nil {
			return err
		}
		if input.ShipmentId != nil {
			shipment, err := utils.FetchModelForUpdate[Shipment](tx, *input.ShipmentId)
			if err != nil {
				return err
			}
			if shipment.OrderId != input.OrderId {
				return utils.NewValidationError("shipment %d does not belong to deal order %d", shipment.ID, input.OrderId)
			}
		}
		if err := tx.Create(&detail).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, detail.ID, "product_details", nil, detail, "Created Product Detail")
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func GetProductDetail(ctx context.Context, id int) (*ProductDetail, error) {
	return GetResource[ProductDetail](ctx, id)
}

func DeleteProductDetail(ctx context.Context, id int) (_ *ProductDetail, err error) {
	ctx, span := startSpan(ctx, "DeleteProductDetail")
	defer func() { endSpan(span, err) }()

	var result ProductDetail
	err = runInTx(ctx, "DeleteProductDetail", func(tx *gorm.DB) error {
		detail, err := utils.FetchModelForUpdate[ProductDetail](tx, id)
		if err != nil {
			return err
		}
		count, err := utils.CountWhere[DyeingProcess](tx, "product_detail_id = ?", id)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.NewConflictError("product detail %d is referenced by dyeing processes", id)
		}
		if err := tx.Delete(detail).Error; err != nil {
			return err
		}
		result = *detail
		return createHistory(tx, HistoryActionDelete, id, "product_details", detail, nil, "Deleted Product Detail")
	})
	if err != nil {
		return nil, err
	}
	forgetResources[ProductDetail](id)
	return &result, nil
}
