package models

import (
	"context"
	"strconv"
	"time"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Machine struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Capacity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"capacity"`
	Status    MachineStatus   `gorm:"type:varchar(30);not null;default:Available" json:"status"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMachine struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Capacity decimal.Decimal `json:"capacity"`
}

func CreateMachine(ctx context.Context, input *NewMachine) (_ *Machine, err error) {
	ctx, span := startSpan(ctx, "CreateMachine")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateNonNegative(utils.DecimalField{Name: "capacity", Value: input.Capacity}); err != nil {
		return nil, err
	}
	machine := Machine{
		Name:     input.Name,
		Capacity: input.Capacity,
		Status:   MachineStatusAvailable,
	}
	err = runInTx(ctx, "CreateMachine", func(tx *gorm.DB) error {
		if err := tx.Create(&machine).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, machine.ID, "machines", nil, machine, "Created Machine")
	})
	if err != nil {
		return nil, err
	}
	return &machine, nil
}

// GetMachine reads through the redis cache.
func GetMachine(ctx context.Context, id int) (*Machine, error) {
	return GetResource[Machine](ctx, id)
}

// IsMachineUnavailable locks the machine row and reports whether it is Busy or
// Under Maintenance. (may return NotFound)
func IsMachineUnavailable(tx *gorm.DB, machineId int) (bool, error) {
	machine, err := utils.FetchModelForUpdate[Machine](tx, machineId)
	if err != nil {
		return false, err
	}
	return machine.Status.IsUnavailable(), nil
}

// setMachineStatus is the only writer of Machine.status.
func setMachineStatus(tx *gorm.DB, machineId int, status MachineStatus) error {
	if !status.IsValid() {
		return utils.NewValidationError("invalid machine status %q", status)
	}
	machine, err := utils.FetchModelForUpdate[Machine](tx, machineId)
	if err != nil {
		return err
	}
	if machine.Status == status {
		return nil
	}
	return ownedBy(tx, config.ReconcilerAllocator).
		Model(&Machine{ID: machineId}).
		Update("status", status).Error
}

// reserveMachine marks an available machine Busy. (NotFound / Conflict)
func reserveMachine(tx *gorm.DB, machineId int) error {
	unavailable, err := IsMachineUnavailable(tx, machineId)
	if err != nil {
		return err
	}
	if unavailable {
		return utils.NewConflictError("machine %d is not available", machineId)
	}
	return setMachineStatus(tx, machineId, MachineStatusBusy)
}

// SetMachineMaintenance toggles Available <-> Under Maintenance.
// A Busy machine has to be released by its process first.
func SetMachineMaintenance(ctx context.Context, id int, underMaintenance bool) (_ *Machine, err error) {
	ctx, span := startSpan(ctx, "SetMachineMaintenance")
	defer func() { endSpan(span, err) }()

	unlock, err := utils.ResourceLock(ctx, machineLockKey(id), "models", "SetMachineMaintenance")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result Machine
	err = runInTx(ctx, "SetMachineMaintenance", func(tx *gorm.DB) error {
		machine, err := utils.FetchModelForUpdate[Machine](tx, id)
		if err != nil {
			return err
		}
		if machine.Status == MachineStatusBusy {
			return utils.NewConflictError("machine %d is busy", id)
		}
		status := MachineStatusAvailable
		if underMaintenance {
			status = MachineStatusUnderMaintenance
		}
		if err := setMachineStatus(tx, id, status); err != nil {
			return err
		}
		before := *machine
		machine.Status = status
		result = *machine
		return createHistory(tx, HistoryActionUpdate, id, "machines", before, result, "Changed Machine Maintenance")
	})
	if err != nil {
		return nil, err
	}
	forgetResources[Machine](id)
	return &result, nil
}

func machineLockKey(id int) string {
	return "machine:" + strconv.Itoa(id)
}
