package model

import "github.com/google/uuid"

type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleSeller     Role = "SELLER"
)

// User is an operator acting on a branch. Credentials live outside this service.
type User struct {
	BaseModel
	Name     string     `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Email    string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Role     Role       `gorm:"type:varchar(20);not null;default:'SELLER'" json:"role" validate:"required,oneof=SUPERADMIN ADMIN SELLER"`
	BranchID *uuid.UUID `gorm:"type:uuid;index" json:"branch_id,omitempty"`
	IsActive bool       `gorm:"not null" json:"is_active"`
}

// IsPrivileged reports whether the user may act on sessions opened by others.
func (u *User) IsPrivileged() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
