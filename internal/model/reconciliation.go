package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SessionState string

const (
	SessionClosed       SessionState = "CLOSED"
	SessionOpen         SessionState = "OPEN"
	SessionPendingClose SessionState = "PENDING_CLOSE"
)

// SessionStatus is the drawer state of a branch plus its last OPEN/CLOSE event.
type SessionStatus struct {
	BranchID  uuid.UUID     `json:"branch_id"`
	State     SessionState  `json:"state"`
	LastEvent *CashMovement `json:"last_event,omitempty"`
}

// ProductActivity aggregates sold and purchased quantities of one product.
type ProductActivity struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	SoldQty       int             `json:"sold_qty"`
	SoldTotal     decimal.Decimal `json:"sold_total"`
	PurchasedQty  int             `json:"purchased_qty"`
	PurchaseTotal decimal.Decimal `json:"purchase_total"`
}

// Reconciliation is the cash balance of one session over [PeriodStart, PeriodEnd).
type Reconciliation struct {
	SessionID          *uuid.UUID        `json:"session_id,omitempty"`
	BranchID           uuid.UUID         `json:"branch_id"`
	OpenedBy           *uuid.UUID        `json:"opened_by,omitempty"`
	OpenedByName       string            `json:"opened_by_name,omitempty"`
	State              SessionState      `json:"state"`
	PeriodStart        time.Time         `json:"period_start"`
	PeriodEnd          time.Time         `json:"period_end"`
	StartingBalance    decimal.Decimal   `json:"starting_balance"`
	Sales              decimal.Decimal   `json:"sales"`
	Purchases          decimal.Decimal   `json:"purchases"`
	ExtraIn            decimal.Decimal   `json:"extra_in"`
	ExtraOut           decimal.Decimal   `json:"extra_out"`
	TheoreticalBalance decimal.Decimal   `json:"theoretical_balance"`
	CountedAmount      *decimal.Decimal  `json:"counted_amount,omitempty"`
	Difference         *decimal.Decimal  `json:"difference,omitempty"`
	CloseID            *uuid.UUID        `json:"close_id,omitempty"`
	Products           []ProductActivity `json:"products,omitempty"`
}

// SessionDetail is a reconciliation with everything posted during the session.
type SessionDetail struct {
	Reconciliation
	Movements []CashMovement `json:"movements"`
	Documents []Document     `json:"documents"`
}
