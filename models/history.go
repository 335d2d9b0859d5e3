package models

import (
	"encoding/json"
	"time"

	"github.com/mmdatafocus/dyeing_backend/utils"
	"gorm.io/gorm"
)

const (
	HistoryActionCreate = "CREATE"
	HistoryActionUpdate = "UPDATE"
	HistoryActionDelete = "DELETE"
)

type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserId        int       `gorm:"index" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CorrelationId string    `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// createHistory writes the audit row through tx, so it commits or rolls back
// with the mutation it describes.
func createHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) (err error) {

	var history History

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok || userName == "" {
		userName = "system"
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	history.ActionType = actionType
	if before != nil {
		history.Before = string(b)
	}
	if after != nil {
		history.After = string(a)
	}
	history.Description = description
	history.ReferenceID = referenceId
	history.ReferenceType = referenceType
	history.UserId = userId
	history.UserName = userName
	history.CorrelationId = correlationId

	return tx.Create(&history).Error
}

func GetHistories(tx *gorm.DB, referenceType string, referenceId int) ([]*History, error) {
	var results []*History
	err := tx.Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id").Find(&results).Error
	return results, err
}
