package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DyeingProcess struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	ProductDetailId int                 `gorm:"index;not null" json:"product_detail_id"`
	MachineId       int                 `gorm:"index;not null" json:"machine_id"`
	BatchQty        decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"batch_qty"`
	GreyWeight      decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"grey_weight"`
	FinishWeight    decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"finish_weight"`
	FinishAfterGsm  decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"finish_after_gsm"`
	FinalQty        decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"final_qty"`
	RejectedQty     decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"rejected_qty"`
	Status          DyeingProcessStatus `gorm:"type:varchar(20);not null;default:'In Progress'" json:"status"`
	StartTime       time.Time           `gorm:"not null" json:"start_time"`
	EndTime         *time.Time          `json:"end_time"`
	ProcessLoss     decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"process_loss"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDyeingProcess struct {
	ProductDetailId int             `json:"product_detail_id" validate:"required,gt=0"`
	MachineId       int             `json:"machine_id" validate:"required,gt=0"`
	BatchQty        decimal.Decimal `json:"batch_qty"`
	GreyWeight      decimal.Decimal `json:"grey_weight"`
	FinishWeight    decimal.Decimal `json:"finish_weight"`
	FinishAfterGsm  decimal.Decimal `json:"finish_after_gsm"`
	FinalQty        decimal.Decimal `json:"final_qty"`
	RejectedQty     decimal.Decimal `json:"rejected_qty"`
	StartTime       *time.Time      `json:"start_time"`
}

// DyeingProcessPatch carries optional changes. There is no loss field: loss is
// always recomputed from the weights.
type DyeingProcessPatch struct {
	MachineId      *int                 `json:"machine_id" validate:"omitempty,gt=0"`
	BatchQty       *decimal.Decimal     `json:"batch_qty"`
	GreyWeight     *decimal.Decimal     `json:"grey_weight"`
	FinishWeight   *decimal.Decimal     `json:"finish_weight"`
	FinishAfterGsm *decimal.Decimal     `json:"finish_after_gsm"`
	FinalQty       *decimal.Decimal     `json:"final_qty"`
	RejectedQty    *decimal.Decimal     `json:"rejected_qty"`
	Status         *DyeingProcessStatus `json:"status"`
}

// ProcessLoss is the weight lost in dyeing as a percentage of grey weight,
// rounded to 2 places. Zero grey weight gives zero.
func ProcessLoss(greyWeight decimal.Decimal, finishWeight decimal.Decimal) decimal.Decimal {
	if greyWeight.IsZero() {
		return decimal.Zero
	}
	return greyWeight.Sub(finishWeight).Div(greyWeight).Mul(decimal.NewFromInt(100)).Round(2)
}

func (input *NewDyeingProcess) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateNonNegative(
		utils.DecimalField{Name: "batch_qty", Value: input.BatchQty},
		utils.DecimalField{Name: "grey_weight", Value: input.GreyWeight},
		utils.DecimalField{Name: "finish_weight", Value: input.FinishWeight},
		utils.DecimalField{Name: "finish_after_gsm", Value: input.FinishAfterGsm},
		utils.DecimalField{Name: "final_qty", Value: input.FinalQty},
		utils.DecimalField{Name: "rejected_qty", Value: input.RejectedQty},
	)
}

func (input *DyeingProcessPatch) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return utils.NewValidationError("invalid dyeing process status %q", *input.Status)
	}
	var fields []utils.DecimalField
	for _, f := range []struct {
		name  string
		value *decimal.Decimal
	}{
		{"batch_qty", input.BatchQty},
		{"grey_weight", input.GreyWeight},
		{"finish_weight", input.FinishWeight},
		{"finish_after_gsm", input.FinishAfterGsm},
		{"final_qty", input.FinalQty},
		{"rejected_qty", input.RejectedQty},
	} {
		if f.value != nil {
			fields = append(fields, utils.DecimalField{Name: f.name, Value: *f.value})
		}
	}
	return utils.ValidateNonNegative(fields...)
}

func CreateDyeingProcess(ctx context.Context, input *NewDyeingProcess) (_ *DyeingProcess, err error) {
	ctx, span := startSpan(ctx, "CreateDyeingProcess")
	defer func() { endSpan(span, err) }()

	if err := input.validate(); err != nil {
		return nil, err
	}

	unlock, err := utils.ResourceLock(ctx, machineLockKey(input.MachineId), "models", "CreateDyeingProcess")
	if err != nil {
		return nil, err
	}
	defer unlock()

	process := DyeingProcess{
		ProductDetailId: input.ProductDetailId,
		MachineId:       input.MachineId,
		BatchQty:        input.BatchQty,
		GreyWeight:      input.GreyWeight,
		FinishWeight:    input.FinishWeight,
		FinishAfterGsm:  input.FinishAfterGsm,
		FinalQty:        input.FinalQty,
		RejectedQty:     input.RejectedQty,
		Status:          DyeingProcessStatusInProgress,
		StartTime:       time.Now(),
		ProcessLoss:     ProcessLoss(input.GreyWeight, input.FinishWeight),
	}
	if input.StartTime != nil {
		process.StartTime = *input.StartTime
	}

	err = runInTx(ctx, "CreateDyeingProcess", func(tx *gorm.DB) error {
		if err := utils.ValidateResourceId[ProductDetail](tx, input.ProductDetailId); err != nil {
			return err
		}
		if err := reserveMachine(tx, input.MachineId); err != nil {
			return err
		}
		if err := tx.Create(&process).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, process.ID, "dyeing_processes", nil, process, "Created Dyeing Process")
	})
	if err != nil {
		return nil, err
	}
	forgetResources[Machine](input.MachineId)
	return &process, nil
}

func UpdateDyeingProcess(ctx context.Context, id int, input *DyeingProcessPatch) (_ *DyeingProcess, err error) {
	ctx, span := startSpan(ctx, "UpdateDyeingProcess")
	defer func() { endSpan(span, err) }()

	if err := input.validate(); err != nil {
		return nil, err
	}

	if input.MachineId != nil {
		unlock, err := utils.ResourceLock(ctx, machineLockKey(*input.MachineId), "models", "UpdateDyeingProcess")
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	var result DyeingProcess
	var touchedMachines []int
	err = runInTx(ctx, "UpdateDyeingProcess", func(tx *gorm.DB) error {
		existing, err := utils.FetchModelForUpdate[DyeingProcess](tx, id)
		if err != nil {
			return err
		}
		updated := *existing

		reassign := input.MachineId != nil && *input.MachineId != existing.MachineId
		finishing := input.Status != nil &&
			*input.Status == DyeingProcessStatusFinished &&
			existing.Status == DyeingProcessStatusInProgress

		if input.Status != nil && *input.Status == DyeingProcessStatusInProgress &&
			existing.Status == DyeingProcessStatusFinished {
			return utils.NewConflictError("dyeing process %d is already finished", id)
		}
		if reassign && existing.Status == DyeingProcessStatusFinished {
			return utils.NewConflictError("finished dyeing process %d cannot change machine", id)
		}
		if reassign && finishing {
			return utils.NewConflictError("dyeing process %d cannot change machine and finish in one update", id)
		}

		if reassign {
			if err := reserveMachine(tx, *input.MachineId); err != nil {
				return err
			}
			if err := setMachineStatus(tx, existing.MachineId, MachineStatusAvailable); err != nil {
				return err
			}
			updated.MachineId = *input.MachineId
			touchedMachines = append(touchedMachines, existing.MachineId, *input.MachineId)
		}
		if finishing {
			now := time.Now()
			updated.Status = DyeingProcessStatusFinished
			updated.EndTime = &now
			if err := setMachineStatus(tx, existing.MachineId, MachineStatusAvailable); err != nil {
				return err
			}
			touchedMachines = append(touchedMachines, existing.MachineId)
		}

		if input.BatchQty != nil {
			updated.BatchQty = *input.BatchQty
		}
		if input.GreyWeight != nil {
			updated.GreyWeight = *input.GreyWeight
		}
		if input.FinishWeight != nil {
			updated.FinishWeight = *input.FinishWeight
		}
		if input.FinishAfterGsm != nil {
			updated.FinishAfterGsm = *input.FinishAfterGsm
		}
		if input.FinalQty != nil {
			updated.FinalQty = *input.FinalQty
		}
		if input.RejectedQty != nil {
			updated.RejectedQty = *input.RejectedQty
		}
		updated.ProcessLoss = ProcessLoss(updated.GreyWeight, updated.FinishWeight)

		if err := ownedBy(tx, config.ReconcilerProcess).Save(&updated).Error; err != nil {
			return err
		}
		result = updated
		return createHistory(tx, HistoryActionUpdate, id, "dyeing_processes", existing, updated, "Updated Dyeing Process")
	})
	if err != nil {
		return nil, err
	}
	forgetResources[Machine](touchedMachines...)
	return &result, nil
}

// DeleteDyeingProcess removes a process without invoices. A process still In
// Progress releases its machine; a finished one already did.
func DeleteDyeingProcess(ctx context.Context, id int) (_ *DyeingProcess, err error) {
	ctx, span := startSpan(ctx, "DeleteDyeingProcess")
	defer func() { endSpan(span, err) }()

	var result DyeingProcess
	err = runInTx(ctx, "DeleteDyeingProcess", func(tx *gorm.DB) error {
		process, err := utils.FetchModelForUpdate[DyeingProcess](tx, id)
		if err != nil {
			return err
		}
		count, err := utils.CountWhere[Invoice](tx, "process_id = ?", id)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.NewConflictError("dyeing process %d is referenced by invoices", id)
		}
		if process.Status == DyeingProcessStatusInProgress {
			if err := setMachineStatus(tx, process.MachineId, MachineStatusAvailable); err != nil {
				return err
			}
		}
		if err := tx.Delete(process).Error; err != nil {
			return err
		}
		result = *process
		return createHistory(tx, HistoryActionDelete, id, "dyeing_processes", process, nil, "Deleted Dyeing Process")
	})
	if err != nil {
		return nil, err
	}
	forgetResources[Machine](result.MachineId)
	return &result, nil
}

func GetDyeingProcess(ctx context.Context, id int) (*DyeingProcess, error) {
	return utils.FetchModel[DyeingProcess](ctx, id)
}
