package model

import "github.com/google/uuid"

type Category struct {
	BaseModel
	Name     string     `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	ParentID *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

// CategoryNode is one row of a flattened category tree.
type CategoryNode struct {
	ID       uuid.UUID  `json:"id"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Name     string     `json:"name"`
	Label    string     `json:"label"`
	Depth    int        `json:"depth"`
}
