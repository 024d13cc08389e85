package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableDirty     TableStatus = "dirty"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableDirty:
		return true
	}
	return false
}

type Table struct {
	Table_id     int             `json:"table_id" validate:"required,min=1"`
	Name         string          `json:"name" validate:"required,min=1,max=50"`
	Status       TableStatus     `json:"status" validate:"required,eq=available|eq=occupied|eq=dirty"`
	Total_amount decimal.Decimal `json:"total_amount"`
	Updated_at   time.Time       `json:"updated_at"`
}

// TableState is the part of a table the billing engine writes.
type TableState struct {
	Status       TableStatus
	Total_amount decimal.Decimal
}

func (t Table) State() TableState {
	return TableState{Status: t.Status, Total_amount: t.Total_amount}
}

func (s TableState) Equal(o TableState) bool {
	return s.Status == o.Status && s.Total_amount.Equal(o.Total_amount)
}

// TablePatch updates only the fields that are set.
type TablePatch struct {
	Status       *TableStatus
	Total_amount *decimal.Decimal
}

func ResetTo(status TableStatus) TablePatch {
	zero := decimal.Zero
	return TablePatch{Status: &status, Total_amount: &zero}
}
