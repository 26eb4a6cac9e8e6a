package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email" gorm:"unique;not null"`
	Password  string    `json:"-" gorm:"not null"`
	Role      string    `json:"role" gorm:"not null;default:'User'"`
	CreatedAt time.Time `json:"created_at"`

	Tasks     []Task     `json:"tasks,omitempty" gorm:"foreignKey:UserID"`
	AuditLogs []AuditLog `json:"audit_logs,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
