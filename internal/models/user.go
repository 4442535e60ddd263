package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an authenticated caller. Users are never physically deleted in the
// request path; administrative deletes are soft.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Roles     []UserRole     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"roles"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserRole is one role assignment. The same user may hold multiple rows.
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_roles_user_role" json:"user_id"`
	Role      Role      `gorm:"size:32;not null;uniqueIndex:idx_user_roles_user_role" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleSet flattens the preloaded assignments.
func (u *User) RoleSet() []Role {
	roles := make([]Role, 0, len(u.Roles))
	for _, ur := range u.Roles {
		roles = append(roles, ur.Role)
	}
	return roles
}
