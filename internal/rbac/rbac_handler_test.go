package rbac

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OlegKumachev/kiout-test-backend/internal/domain"
	"github.com/OlegKumachev/kiout-test-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// =========================================
// Mock Service
// =========================================

type mockService struct {
	last domain.EnforceRequest
}

func (m *mockService) Enforce(req domain.EnforceRequest) (bool, error) {
	m.last = req
	return req.Resource == domain.ResourceWorker && req.Action == domain.ActionRead, nil
}

// =========================================
// TEST: Handler Enforce
// =========================================

func TestHandler_Enforce(t *testing.T) {
	gin.SetMode(gin.TestMode)

	service := &mockService{}
	handler := NewHandler(service)

	r := gin.New()
	r.POST("/rbac/enforce", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "user-1")
		c.Next()
	}, handler.Enforce)

	t.Run("allowed for caller", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"user_id":  "someone-else",
			"resource": "worker",
			"action":   "read",
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rbac/enforce", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"allowed":true`)
		assert.Equal(t, "user-1", service.last.UserID)
	})

	t.Run("denied", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"resource": "user", "action": "delete"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rbac/enforce", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"allowed":false`)
	})

	t.Run("missing action", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rbac/enforce", bytes.NewBufferString(`{"resource":"worker"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
