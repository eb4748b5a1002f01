package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Operation string

const (
	OperationSale     Operation = "SALE"
	OperationPurchase Operation = "PURCHASE"
)

type DocumentKind string

const (
	DocumentInvoice DocumentKind = "INVOICE"
	DocumentReceipt DocumentKind = "RECEIPT"
)

type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPaid    PaymentStatus = "PAID"
	StatusVoided  PaymentStatus = "VOIDED"
)

var hundred = decimal.NewFromInt(100)

// Document is one posted sale or purchase.
type Document struct {
	BaseModel
	BranchID       uuid.UUID     `gorm:"type:uuid;not null;index:idx_documents_branch_issued,priority:1" json:"branch_id"`
	CounterpartyID *uuid.UUID    `gorm:"type:uuid;index" json:"counterparty_id,omitempty"`
	UserID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	Operation      Operation     `gorm:"type:varchar(10);not null" json:"operation"`
	Kind           DocumentKind  `gorm:"type:varchar(10);not null" json:"kind"`
	Folio          string        `gorm:"type:varchar(64);not null;index" json:"folio"`
	Status         PaymentStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	IssuedAt       time.Time     `gorm:"not null;index:idx_documents_branch_issued,priority:2" json:"issued_at"`
	Notes          string        `gorm:"type:text" json:"notes,omitempty"`

	Lines []DocumentLine `gorm:"foreignKey:DocumentID" json:"lines"`

	// Total is derived from Lines and never stored.
	Total decimal.Decimal `gorm:"-" json:"total"`
}

// LinesTotal sums the unrounded line contributions and rounds once.
func (d *Document) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range d.Lines {
		total = total.Add(d.Lines[i].Net())
	}
	return total.Round(2)
}

func (d *Document) AfterFind(tx *gorm.DB) error {
	d.Total = d.LinesTotal()
	return nil
}

// DocumentLine is immutable once written and lives as long as its document.
type DocumentLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	DocumentID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"document_id"`
	Position    int             `gorm:"not null" json:"position"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	DiscountPct decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_pct"`
	Location    string          `gorm:"type:varchar(100);not null" json:"location"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (l *DocumentLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Net is quantity × unit price × (1 − discount/100), unrounded.
func (l *DocumentLine) Net() decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(l.DiscountPct.Div(hundred))
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Mul(factor)
}
