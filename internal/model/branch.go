package model

// Branch is a physical sales location owning its own stock and cash sessions.
type Branch struct {
	BaseModel
	Name      string  `gorm:"type:varchar(150);uniqueIndex;not null" json:"name" validate:"required,max=150"`
	Address   *string `gorm:"type:varchar(255);uniqueIndex" json:"address,omitempty"`
	Phone     *string `gorm:"type:varchar(30);uniqueIndex" json:"phone,omitempty"`
	IsPrimary bool    `gorm:"default:false;not null" json:"is_primary"`
}

func (Branch) TableName() string {
	return "branches"
}
