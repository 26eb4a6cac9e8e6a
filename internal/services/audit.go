package services

import (
	"log"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type AuditService interface {
	Log(db *gorm.DB, actorID uuid.UUID, action string, taskID *uuid.UUID, description string)
	ListLogs(db *gorm.DB) ([]models.AuditLog, error)
}

type AuditServiceImpl struct {
	clock Clock
}

func NewAuditService(clock Clock) *AuditServiceImpl {
	if clock == nil {
		clock = SystemClock
	}
	return &AuditServiceImpl{clock: clock}
}

// Log appends one audit entry. Failures are swallowed after logging: a failed
// audit write must never fail the mutation that triggered it.
func (s *AuditServiceImpl) Log(db *gorm.DB, actorID uuid.UUID, action string, taskID *uuid.UUID, description string) {
	entry := models.AuditLog{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      actorID,
		TaskID:      taskID,
		Action:      action,
		Description: description,
		Timestamp:   s.clock.Now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("failed to write audit log (%s by %s): %v", action, actorID, err)
	}
}

func (s *AuditServiceImpl) ListLogs(db *gorm.DB) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := db.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
