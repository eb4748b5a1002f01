package model

// Counterparty is a customer, a supplier, or both.
type Counterparty struct {
	BaseModel
	TaxID      string `gorm:"type:varchar(32);uniqueIndex;not null" json:"tax_id" validate:"required,max=32"`
	Name       string `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Email      string `gorm:"type:varchar(255)" json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Address    string `gorm:"type:varchar(255)" json:"address,omitempty"`
	IsCustomer bool   `gorm:"default:false;not null" json:"is_customer"`
	IsSupplier bool   `gorm:"default:false;not null" json:"is_supplier"`
}

func (Counterparty) TableName() string {
	return "counterparties"
}
