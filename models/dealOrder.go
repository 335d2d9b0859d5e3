package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DealOrder struct {
	ID               int             `gorm:"primary_key" json:"id"`
	DealId           int             `gorm:"index;not null" json:"deal_id"`
	OrderNo          string          `gorm:"size:100" json:"order_no"`
	BookingQty       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"booking_qty"`
	TotalReceivedQty decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_received_qty"`
	TotalReturnedQty decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_returned_qty"`
	Status           DealOrderStatus `gorm:"type:varchar(20);not null;default:Pending" json:"status"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDealOrder struct {
	DealId     int             `json:"deal_id" validate:"required,gt=0"`
	OrderNo    string          `json:"order_no" validate:"max=100"`
	BookingQty decimal.Decimal `json:"booking_qty"`
}

// DealOrderStatusFor derives fulfillment status from received vs booked quantity.
func DealOrderStatusFor(received decimal.Decimal, booking decimal.Decimal) DealOrderStatus {
	switch {
	case !received.IsPositive():
		return DealOrderStatusPending
	case received.GreaterThanOrEqual(booking):
		return DealOrderStatusCompleted
	default:
		return DealOrderStatusInProcess
	}
}

func CreateDealOrder(ctx context.Context, input *NewDealOrder) (_ *DealOrder, err error) {
	ctx, span := startSpan(ctx, "CreateDealOrder")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateNonNegative(utils.DecimalField{Name: "booking_qty", Value: input.BookingQty}); err != nil {
		return nil, err
	}
	order := DealOrder{
		DealId:           input.DealId,
		OrderNo:          input.OrderNo,
		BookingQty:       input.BookingQty,
		TotalReceivedQty: decimal.Zero,
		TotalReturnedQty: decimal.Zero,
		Status:           DealOrderStatusPending,
	}
	err = runInTx(ctx, "CreateDealOrder", func(tx *gorm.DB) error {
		if err := utils.ValidateResourceId[Deal](tx, input.DealId); err != nil {
			return err
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, order.ID, "deal_orders", nil, order, "Created Deal Order")
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func GetDealOrder(ctx context.Context, id int) (*DealOrder, error) {
	return utils.FetchModel[DealOrder](ctx, id)
}

func DeleteDealOrder(ctx context.Context, id int) (_ *DealOrder, err error) {
	ctx, span := startSpan(ctx, "DeleteDealOrder")
	defer func() { endSpan(span, err) }()

	var result DealOrder
	err = runInTx(ctx, "DeleteDealOrder", func(tx *gorm.DB) error {
		order, err := utils.FetchModelForUpdate[DealOrder](tx, id)
		if err != nil {
			return err
		}
		for _, ref := range []struct {
			name  string
			count func() (int64, error)
		}{
			{"shipments", func() (int64, error) { return utils.CountWhere[Shipment](tx, "order_id = ?", id) }},
			{"returns", func() (int64, error) { return utils.CountWhere[OrderReturn](tx, "order_id = ?", id) }},
			{"product details", func() (int64, error) { return utils.CountWhere[ProductDetail](tx, "order_id = ?", id) }},
		} {
			count, err := ref.count()
			if err != nil {
				return err
			}
			if count > 0 {
				return utils.NewConflictError("deal order %d is referenced by %s", id, ref.name)
			}
		}
		if err := tx.Delete(order).Error; err != nil {
			return err
		}
		result = *order
		return createHistory(tx, HistoryActionDelete, id, "deal_orders", order, nil, "Deleted Deal Order")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// lockDealOrder fetches the order with a row lock. (may return NotFound)
func lockDealOrder(tx *gorm.DB, id int) (*DealOrder, error) {
	return utils.FetchModelForUpdate[DealOrder](tx, id)
}

// applyReceivedQty adds delta to totalReceivedQty and recomputes status.
// The order must already be locked by the caller.
func applyReceivedQty(tx *gorm.DB, order *DealOrder, delta decimal.Decimal) error {
	total := order.TotalReceivedQty.Add(delta)
	if total.IsNegative() {
		return utils.NewConflictError("received quantity of deal order %d would become negative", order.ID)
	}
	status := DealOrderStatusFor(total, order.BookingQty)
	if err := ownedBy(tx, config.ReconcilerFulfillment).
		Model(&DealOrder{ID: order.ID}).
		Updates(map[string]interface{}{"total_received_qty": total, "status": status}).Error; err != nil {
		return err
	}
	order.TotalReceivedQty = total
	order.Status = status
	return nil
}

// applyReturnedQty adds delta (possibly negative) to totalReturnedQty.
// Returns may not exceed the booked quantity.
func applyReturnedQty(tx *gorm.DB, order *DealOrder, delta decimal.Decimal) error {
	total := order.TotalReturnedQty.Add(delta)
	if total.IsNegative() {
		return utils.NewConflictError("returned quantity of deal order %d would become negative", order.ID)
	}
	if total.GreaterThan(order.BookingQty) {
		return utils.NewConflictError("returned quantity %s exceeds booking quantity %s of deal order %d",
			total.String(), order.BookingQty.String(), order.ID)
	}
	if err := ownedBy(tx, config.ReconcilerFulfillment).
		Model(&DealOrder{ID: order.ID}).
		Update("total_returned_qty", total).Error; err != nil {
		return err
	}
	order.TotalReturnedQty = total
	return nil
}

type OrderTotalsCheck struct {
	OrderId          int             `json:"order_id"`
	TotalReceivedQty decimal.Decimal `json:"total_received_qty"`
	SumReceivedQty   decimal.Decimal `json:"sum_received_qty"`
	TotalReturnedQty decimal.Decimal `json:"total_returned_qty"`
	SumReturnedQty   decimal.Decimal `json:"sum_returned_qty"`
	Status           DealOrderStatus `json:"status"`
	ExpectedStatus   DealOrderStatus `json:"expected_status"`
}

func (c *OrderTotalsCheck) Balanced() bool {
	return c.TotalReceivedQty.Equal(c.SumReceivedQty) &&
		c.TotalReturnedQty.Equal(c.SumReturnedQty) &&
		c.Status == c.ExpectedStatus
}

// VerifyOrderTotals recomputes both fulfillment totals from their records.
func VerifyOrderTotals(ctx context.Context, orderId int) (*OrderTotalsCheck, error) {
	db := config.GetDB().WithContext(ctx)
	order, err := utils.FetchModel[DealOrder](ctx, orderId)
	if err != nil {
		return nil, err
	}
	var shipments []Shipment
	if err := db.Where("order_id = ?", orderId).Find(&shipments).Error; err != nil {
		return nil, err
	}
	var returns []OrderReturn
	if err := db.Where("order_id = ?", orderId).Find(&returns).Error; err != nil {
		return nil, err
	}
	check := OrderTotalsCheck{
		OrderId:          orderId,
		TotalReceivedQty: order.TotalReceivedQty,
		SumReceivedQty:   decimal.Zero,
		TotalReturnedQty: order.TotalReturnedQty,
		SumReturnedQty:   decimal.Zero,
		Status:           order.Status,
	}
	for _, s := range shipments {
		check.SumReceivedQty = check.SumReceivedQty.Add(s.ReceivedQty)
	}
	for _, r := range returns {
		check.SumReturnedQty = check.SumReturnedQty.Add(r.QtyReturned)
	}
	check.ExpectedStatus = DealOrderStatusFor(check.SumReceivedQty, order.BookingQty)
	return &check, nil
}
