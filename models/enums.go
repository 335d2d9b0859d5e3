package models

import (
	"encoding/json"
	"errors"
)

type MachineStatus string

const (
	MachineStatusAvailable        MachineStatus = "Available"
	MachineStatusBusy             MachineStatus = "Busy"
	MachineStatusUnderMaintenance MachineStatus = "Under Maintenance"
)

func (s MachineStatus) IsValid() bool {
	switch s {
	case MachineStatusAvailable, MachineStatusBusy, MachineStatusUnderMaintenance:
		return true
	}
	return false
}

// IsUnavailable reports whether a process may not be assigned to the machine.
func (s MachineStatus) IsUnavailable() bool {
	return s == MachineStatusBusy || s == MachineStatusUnderMaintenance
}

func (s *MachineStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, s, "machine status")
}

type DyeingProcessStatus string

const (
	DyeingProcessStatusInProgress DyeingProcessStatus = "In Progress"
	DyeingProcessStatusFinished   DyeingProcessStatus = "Finished"
)

func (s DyeingProcessStatus) IsValid() bool {
	switch s {
	case DyeingProcessStatusInProgress, DyeingProcessStatusFinished:
		return true
	}
	return false
}

func (s *DyeingProcessStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, s, "dyeing process status")
}

type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "Unpaid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "Partially Paid"
	InvoiceStatusPaid          InvoiceStatus = "Paid"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartiallyPaid, InvoiceStatusPaid:
		return true
	}
	return false
}

func (s *InvoiceStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, s, "invoice status")
}

type DealOrderStatus string

const (
	DealOrderStatusPending   DealOrderStatus = "Pending"
	DealOrderStatusInProcess DealOrderStatus = "In Process"
	DealOrderStatusCompleted DealOrderStatus = "Completed"
)

func (s DealOrderStatus) IsValid() bool {
	switch s {
	case DealOrderStatusPending, DealOrderStatusInProcess, DealOrderStatusCompleted:
		return true
	}
	return false
}

func (s *DealOrderStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, s, "deal order status")
}

type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "Cash"
	PaymentMethodBankTransfer  PaymentMethod = "Bank Transfer"
	PaymentMethodCheque        PaymentMethod = "Cheque"
	PaymentMethodMobileBanking PaymentMethod = "Mobile Banking"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodMobileBanking:
		return true
	}
	return false
}

func (m *PaymentMethod) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, m, "payment method")
}

type validEnum interface {
	~string
	IsValid() bool
}

// convert json input to enum type, rejecting values outside the closed set
func unmarshalEnum[T validEnum](b []byte, dest *T, name string) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New(name + " must be string")
	}
	v := T(str)
	if !v.IsValid() {
		return errors.New("invalid " + name)
	}
	*dest = v
	return nil
}
