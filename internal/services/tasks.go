package services

import (
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const dueDateLayout = "2006-01-02"

type TaskFilter struct {
	Status string
	Search string
	SortBy string
}

// TaskInput carries the fields of a new task. DueDate is the raw YYYY-MM-DD
// string from the request; parsing happens here so create and update report
// a bad date through the same ValidationError.
type TaskInput struct {
	Title       string
	Description string
	Status      string
	DueDate     string
}

// TaskPatch carries a partial update. A nil field means "leave unchanged".
// An empty string clears Description and DueDate but is ignored for Title and
// Status, which cannot be blanked.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	DueDate     *string
}

// ReminderScheduler enqueues a due-date reminder. Scheduling is best-effort
// and never affects the outcome of the task mutation.
type ReminderScheduler interface {
	ScheduleTaskReminder(taskID uuid.UUID, at time.Time) error
}

type TaskService interface {
	ListTasks(db *gorm.DB, actor models.User, filter TaskFilter) ([]models.Task, error)
	CreateTask(db *gorm.DB, actor models.User, input TaskInput) (uuid.UUID, error)
	GetTaskByID(db *gorm.DB, actor models.User, id uuid.UUID) (models.Task, error)
	UpdateTask(db *gorm.DB, actor models.User, id uuid.UUID, patch TaskPatch) error
	DeleteTask(db *gorm.DB, actor models.User, id uuid.UUID) error
}

type TaskServiceImpl struct {
	clock     Clock
	audit     AuditService
	reminders ReminderScheduler
}

func NewTaskService(clock Clock, audit AuditService, reminders ReminderScheduler) *TaskServiceImpl {
	if clock == nil {
		clock = SystemClock
	}
	return &TaskServiceImpl{clock: clock, audit: audit, reminders: reminders}
}

// ListTasks marks overdue tasks, loads the visible set (all tasks for admins,
// own tasks otherwise) and applies filters and sorting in memory.
func (s *TaskServiceImpl) ListTasks(db *gorm.DB, actor models.User, filter TaskFilter) ([]models.Task, error) {
	if err := s.markOverdueTasks(db); err != nil {
		return nil, err
	}

	q := db
	if !actor.IsAdmin() {
		q = q.Where("user_id = ?", actor.ID)
	}
	var tasks []models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}

	if filter.Status != "" {
		filtered := tasks[:0]
		for _, task := range tasks {
			if task.Status == filter.Status {
				filtered = append(filtered, task)
			}
		}
		tasks = filtered
	}

	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		filtered := tasks[:0]
		for _, task := range tasks {
			if strings.Contains(strings.ToLower(task.Title), needle) {
				filtered = append(filtered, task)
			}
		}
		tasks = filtered
	}

	if filter.SortBy == "due_date" {
		// Tasks without a due date always sort after tasks with one.
		sort.SliceStable(tasks, func(i, j int) bool {
			a, b := tasks[i].DueDate, tasks[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})
	} else {
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		})
	}

	return tasks, nil
}

// markOverdueTasks persists the derived Overdue state for every task whose
// due date has passed and that is not completed. Re-marking already-overdue
// rows is a no-op, so concurrent list calls may run this redundantly.
func (s *TaskServiceImpl) markOverdueTasks(db *gorm.DB) error {
	today := startOfDay(s.clock.Now())
	return db.Model(&models.Task{}).
		Where("due_date IS NOT NULL AND due_date < ? AND status NOT IN ?",
			today, []string{models.StatusCompleted, models.StatusOverdue}).
		Update("status", models.StatusOverdue).Error
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, actor models.User, input TaskInput) (uuid.UUID, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return uuid.Nil, &ValidationError{Field: "title", Reason: "title is required"}
	}
	if input.Status == "" {
		input.Status = models.StatusPending
	}
	if !models.ValidStatus(input.Status) {
		return uuid.Nil, &ValidationError{Field: "status", Reason: "unknown status " + input.Status}
	}
	var dueDate *time.Time
	if input.DueDate != "" {
		due, err := time.Parse(dueDateLayout, input.DueDate)
		if err != nil {
			return uuid.Nil, &ValidationError{Field: "due_date", Reason: "expected " + dueDateLayout}
		}
		dueDate = &due
	}

	taskID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	now := s.clock.Now()
	task := models.Task{
		ID:          taskID,
		UserID:      actor.ID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&task).Error; err != nil {
		return uuid.Nil, err
	}

	s.audit.Log(db, actor.ID, models.ActionCreate, &taskID, "Created task: "+task.Title)

	if s.reminders != nil && task.DueDate != nil {
		if err := s.reminders.ScheduleTaskReminder(taskID, *task.DueDate); err != nil {
			log.Printf("failed to schedule reminder for task %s: %v", taskID, err)
		}
	}

	return taskID, nil
}

func (s *TaskServiceImpl) GetTaskByID(db *gorm.DB, actor models.User, id uuid.UUID) (models.Task, error) {
	var task models.Task
	err := db.First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return models.Task{}, err
	}
	if !CanAccess(actor, task) {
		return models.Task{}, ErrForbidden
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, actor models.User, id uuid.UUID, patch TaskPatch) error {
	task, err := s.GetTaskByID(db, actor, id)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	statusChanged := false
	newTitle := task.Title

	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" && *patch.Title != task.Title {
		updates["title"] = strings.TrimSpace(*patch.Title)
		newTitle = updates["title"].(string)
	}
	if patch.Description != nil && *patch.Description != task.Description {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil && *patch.Status != "" {
		if !models.ValidStatus(*patch.Status) {
			return &ValidationError{Field: "status", Reason: "unknown status " + *patch.Status}
		}
		if *patch.Status != task.Status {
			updates["status"] = *patch.Status
			statusChanged = true
		}
	}
	if patch.DueDate != nil {
		if *patch.DueDate == "" {
			if task.DueDate != nil {
				updates["due_date"] = nil
			}
		} else {
			due, err := time.Parse(dueDateLayout, *patch.DueDate)
			if err != nil {
				return &ValidationError{Field: "due_date", Reason: "expected " + dueDateLayout}
			}
			if task.DueDate == nil || !task.DueDate.Equal(due) {
				updates["due_date"] = due
			}
		}
	}

	if len(updates) == 0 {
		return ErrNoChange
	}
	updates["updated_at"] = s.clock.Now()

	if err := db.Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return err
	}

	action := models.ActionUpdate
	if statusChanged {
		action = models.ActionStatusChange
	}
	s.audit.Log(db, actor.ID, action, &id, "Updated task: "+newTitle)

	return nil
}

// DeleteTask appends the audit entry before removing the row, so the trail
// records intent even if the delete itself then fails. The delete is hard:
// no tombstone, no recovery path.
func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, actor models.User, id uuid.UUID) error {
	task, err := s.GetTaskByID(db, actor, id)
	if err != nil {
		return err
	}

	s.audit.Log(db, actor.ID, models.ActionDelete, &task.ID, "Deleted task: "+task.Title)

	return db.Delete(&models.Task{}, "id = ?", id).Error
}
