package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/dyeing_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/* DB fetching */

// fetch model from db
// (may return NotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError(GetTypeName[T](), id)
		}
		return nil, err
	}
	return &result, nil
}

// fetch model inside tx and hold a row lock until commit/rollback
// (may return NotFound)
func FetchModelForUpdate[T any](tx *gorm.DB, id int) (*T, error) {
	var result T
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError(GetTypeName[T](), id)
		}
		return nil, err
	}
	return &result, nil
}

// count rows of T matching condition inside tx
func CountWhere[T any](tx *gorm.DB, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64
	if err := tx.Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
