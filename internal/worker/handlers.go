package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// NewTaskReminderHandler resolves the task named in the job payload and logs
// a reminder for it. Tasks that were completed or deleted before their due
// date arrived are skipped silently.
func NewTaskReminderHandler(db *gorm.DB) JobHandler {
	return func(ctx context.Context, job *Job) error {
		taskIDStr, ok := job.Payload["task_id"].(string)
		if !ok {
			return fmt.Errorf("task reminder job %s missing task_id", job.ID)
		}
		taskID, err := uuid.FromString(taskIDStr)
		if err != nil {
			return fmt.Errorf("task reminder job %s has invalid task_id: %w", job.ID, err)
		}

		var task models.Task
		err = db.WithContext(ctx).First(&task, "id = ?", taskID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if task.Status == models.StatusCompleted {
			return nil
		}

		log.Printf("reminder: task %q (%s) owned by %s is due", task.Title, task.ID, task.UserID)
		return nil
	}
}

// NewTokenCleanupHandler deletes expired refresh tokens, then re-enqueues
// itself so cleanup keeps running at the configured interval.
func NewTokenCleanupHandler(db *gorm.DB, queue *JobQueue, interval time.Duration) JobHandler {
	return func(ctx context.Context, job *Job) error {
		removed, err := services.DeleteExpiredTokens(db.WithContext(ctx), time.Now())
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Printf("token cleanup removed %d expired refresh tokens", removed)
		}

		if err := queue.EnqueueAt(DefaultQueue, JobTypeTokenCleanup, nil, time.Now().Add(interval)); err != nil {
			log.Printf("failed to reschedule token cleanup: %v", err)
		}
		return nil
	}
}
