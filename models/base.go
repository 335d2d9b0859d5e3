package models

import (
	"context"
	"errors"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("dyeing-backend/models")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "models."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// runInTx executes fn in one transaction bound to ctx. Guard failures come back
// unchanged; anything else that aborted the transaction becomes a TransactionFailure.
func runInTx(ctx context.Context, funcName string, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()
	if db == nil {
		return utils.NewTransactionFailure(errors.New("db is nil"))
	}
	err := utils.AsTransactionFailure(db.WithContext(ctx).Transaction(fn))
	if utils.IsTransactionFailure(err) {
		config.LogError(config.GetLogger(), "models", funcName, "transaction rolled back", nil, err)
	}
	return err
}

// ownedBy returns tx scoped to the reconciler that owns the derived columns it writes.
func ownedBy(tx *gorm.DB, reconciler string) *gorm.DB {
	return tx.WithContext(utils.SetReconcilerInContext(tx.Statement.Context, reconciler))
}
