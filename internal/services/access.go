package services

import "task-tracker/backend/internal/models"

// CanAccess reports whether actor may view or mutate task: admins may access
// every task, everyone else only their own.
func CanAccess(actor models.User, task models.Task) bool {
	return actor.IsAdmin() || actor.ID == task.UserID
}
