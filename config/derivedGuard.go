package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/dyeing_backend/appctx"
	"gorm.io/gorm"
)

// Reconciler names. Each derived column is owned by exactly one of these.
const (
	ReconcilerAllocator   = "allocator"
	ReconcilerProcess     = "process"
	ReconcilerFulfillment = "fulfillment"
	ReconcilerLedger      = "ledger"
)

type derivedColumns struct {
	owner   string
	columns []string
}

// derivedColumnOwners maps table -> derived columns and their owning reconciler.
var derivedColumnOwners = map[string]derivedColumns{
	"machines":         {owner: ReconcilerAllocator, columns: []string{"status"}},
	"dyeing_processes": {owner: ReconcilerProcess, columns: []string{"process_loss"}},
	"deal_orders":      {owner: ReconcilerFulfillment, columns: []string{"total_received_qty", "total_returned_qty", "status"}},
	"invoices":         {owner: ReconcilerLedger, columns: []string{"paid_amount", "status"}},
}

// DerivedGuardPlugin rejects UPDATE statements that touch a derived column unless
// the statement context carries the owning reconciler (appctx.ContextKeyReconciler).
//
// NOTE:
// - This does NOT apply to Raw/Exec SQL. Those must not touch derived columns.
// - Inserts are not guarded; rows are created with zero-valued totals.
type DerivedGuardPlugin struct{}

func NewDerivedGuardPlugin() *DerivedGuardPlugin { return &DerivedGuardPlugin{} }

func (p *DerivedGuardPlugin) Name() string { return "derived_guard" }

func (p *DerivedGuardPlugin) Initialize(db *gorm.DB) error {
	return db.Callback().Update().Before("gorm:update").Register("derived_guard:update", derivedGuardCallback)
}

func derivedGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || !StrictDerivedGuard() {
		return
	}
	guarded, ok := derivedColumnOwners[db.Statement.Table]
	if !ok {
		return
	}
	if reconcilerFromContext(db.Statement.Context) == guarded.owner {
		return
	}
	if touched := touchedDerivedColumn(db, guarded.columns); touched != "" {
		_ = db.AddError(fmt.Errorf("%w: %s.%s is owned by the %s reconciler", ErrDerivedColumnWrite, db.Statement.Table, touched, guarded.owner))
	}
}

// ErrDerivedColumnWrite is returned when a derived column is written outside its owner.
var ErrDerivedColumnWrite = fmt.Errorf("direct write to derived column")

// returns the first derived column the statement would write, or "".
func touchedDerivedColumn(db *gorm.DB, columns []string) string {
	switch dest := db.Statement.Dest.(type) {
	case map[string]interface{}:
		for key := range dest {
			for _, col := range columns {
				if strings.EqualFold(columnName(db, key), col) {
					return col
				}
			}
		}
		return ""
	default:
		// struct Save/Updates: only selected or non-zero fields are written; treat
		// an explicit Select/Omit list as authoritative, otherwise assume all.
		if len(db.Statement.Selects) > 0 {
			for _, sel := range db.Statement.Selects {
				for _, col := range columns {
					if sel == "*" || strings.EqualFold(columnName(db, sel), col) {
						return col
					}
				}
			}
			return ""
		}
		return columns[0]
	}
}

func columnName(db *gorm.DB, name string) string {
	if db.Statement.Schema != nil {
		if f := db.Statement.Schema.LookUpField(name); f != nil {
			return f.DBName
		}
	}
	return name
}

func reconcilerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := appctx.GetString(ctx, appctx.ContextKeyReconciler)
	return v
}
