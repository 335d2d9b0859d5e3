package models

import (
	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Deal{}, &DealOrder{}, &Shipment{}, &ProductDetail{}, &OrderReturn{},
		&Machine{}, &DyeingProcess{},
		&Invoice{}, &Payment{},
		&History{},
		&ReconciliationReport{},
	)
}
