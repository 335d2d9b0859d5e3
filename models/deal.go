package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/dyeing_backend/utils"
	"gorm.io/gorm"
)

type Deal struct {
	ID         int       `gorm:"primary_key" json:"id"`
	ClientName string    `gorm:"size:255;not null" json:"client_name"`
	DealDate   time.Time `gorm:"not null" json:"deal_date"`
	Notes      string    `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDeal struct {
	ClientName string    `json:"client_name" validate:"required,max=255"`
	DealDate   time.Time `json:"deal_date"`
	Notes      string    `json:"notes"`
}

func CreateDeal(ctx context.Context, input *NewDeal) (_ *Deal, err error) {
	ctx, span := startSpan(ctx, "CreateDeal")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	deal := Deal{
		ClientName: input.ClientName,
		DealDate:   input.DealDate,
		Notes:      input.Notes,
	}
	if deal.DealDate.IsZero() {
		deal.DealDate = time.Now()
	}
	err = runInTx(ctx, "CreateDeal", func(tx *gorm.DB) error {
		if err := tx.Create(&deal).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, deal.ID, "deals", nil, deal, "Created Deal")
	})
	if err != nil {
		return nil, err
	}
	return &deal, nil
}
