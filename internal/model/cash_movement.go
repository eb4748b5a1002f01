package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementOpen    MovementKind = "OPEN"
	MovementClose   MovementKind = "CLOSE"
	MovementIncome  MovementKind = "INCOME"
	MovementExpense MovementKind = "EXPENSE"
)

// CashMovement is one drawer event. OPEN and CLOSE delimit a cash session.
type CashMovement struct {
	BaseModel
	BranchID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_cash_branch_time,priority:1" json:"branch_id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Kind        MovementKind    `gorm:"type:varchar(10);not null;index" json:"kind"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"amount"`
	DocumentID  *uuid.UUID      `gorm:"type:uuid;index" json:"document_id,omitempty"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	OccurredAt  time.Time       `gorm:"not null;index:idx_cash_branch_time,priority:2" json:"occurred_at"`

	// Set on CLOSE only.
	Variance      *decimal.Decimal `gorm:"type:numeric(14,2)" json:"variance,omitempty"`
	SessionOpenID *uuid.UUID       `gorm:"type:uuid;index" json:"session_open_id,omitempty"`
}

func (CashMovement) TableName() string {
	return "cash_movements"
}

// IsLinked reports whether the movement is the cash side of a document.
func (m *CashMovement) IsLinked() bool {
	return m.DocumentID != nil
}
