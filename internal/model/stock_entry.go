package model

import "github.com/google/uuid"

// StockEntry is the quantity of one product at one branch and storage location.
type StockEntry struct {
	BaseModel
	BranchID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_key,priority:1" json:"branch_id" validate:"uuid_required"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_key,priority:2;index" json:"product_id" validate:"uuid_required"`
	Location  string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_stock_key,priority:3" json:"location" validate:"required,max=100"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	Minimum   int       `gorm:"not null" json:"minimum" validate:"gte=0"`
	Maximum   int       `gorm:"not null" json:"maximum" validate:"gte=0"`

	Branch  *Branch  `gorm:"foreignKey:BranchID" json:"branch,omitempty" validate:"-"`
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
}

func (StockEntry) TableName() string {
	return "stock_entries"
}

// IsAlert reports whether the entry sits at or below its minimum.
func (e *StockEntry) IsAlert() bool {
	return e.Quantity <= e.Minimum
}
