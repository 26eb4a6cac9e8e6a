package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	ActionCreate       = "CREATE"
	ActionUpdate       = "UPDATE"
	ActionDelete       = "DELETE"
	ActionStatusChange = "STATUS_CHANGE"
)

// AuditLog rows are append-only: they are never updated or deleted, and the
// task reference may dangle after the task itself is hard-deleted.
type AuditLog struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null"`
	TaskID      *uuid.UUID `json:"task_id,omitempty" gorm:"type:uuid"`
	Action      string     `json:"action" gorm:"not null"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp" gorm:"not null;index"`
}
