package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultUnit = "UNID"

type Product struct {
	BaseModel
	Barcode     *string         `gorm:"type:varchar(64);uniqueIndex" json:"barcode,omitempty"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty" validate:"-"`
	NetCost     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"net_cost" validate:"decimal_gte0"`
	SalePrice   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"sale_price" validate:"decimal_gte0"`
	Unit        string          `gorm:"type:varchar(20);not null;default:'UNID'" json:"unit"`
}
