package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-tracker/backend/internal/handlers"
	"task-tracker/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type MockAuditService struct {
	listCalled bool
	logs       []models.AuditLog
	returnErr  error
}

func (m *MockAuditService) Log(db *gorm.DB, actorID uuid.UUID, action string, taskID *uuid.UUID, description string) {
}

func (m *MockAuditService) ListLogs(db *gorm.DB) ([]models.AuditLog, error) {
	m.listCalled = true
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return m.logs, nil
}

func setupAuditHandler(role string) (*MockAuditService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	mockService := &MockAuditService{}
	handler := handlers.NewAuditHandler(nil, mockService)
	router := gin.New()

	router.Use(func(c *gin.Context) {
		c.Set("user_id", uuid.Must(uuid.NewV4()).String())
		c.Set("user_role", role)
		c.Next()
	})
	router.GET("/audit-logs", handler.GetAuditLogs)

	return mockService, router
}

func TestGetAuditLogsAsAdmin(t *testing.T) {
	mockService, router := setupAuditHandler(models.RoleAdmin)
	mockService.logs = []models.AuditLog{
		{ID: uuid.Must(uuid.NewV4()), Action: models.ActionCreate, Timestamp: time.Now()},
	}

	req, _ := http.NewRequest("GET", "/audit-logs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response struct {
		Logs []models.AuditLog `json:"logs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Logs) != 1 {
		t.Errorf("Expected 1 log entry, got %d", len(response.Logs))
	}
}

func TestGetAuditLogsForbiddenForNonAdmin(t *testing.T) {
	mockService, router := setupAuditHandler(models.RoleUser)

	req, _ := http.NewRequest("GET", "/audit-logs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d, got %d", http.StatusForbidden, w.Code)
	}
	if mockService.listCalled {
		t.Error("Audit store must not be queried for non-admin callers")
	}
}
