package worker_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OlegKumachev/kiout-test-backend/internal/middleware"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
	"github.com/OlegKumachev/kiout-test-backend/internal/worker"
	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"
	workerMock "github.com/OlegKumachev/kiout-test-backend/internal/worker/mock"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type envelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error map[string]any  `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func setupWorkerRouter(t *testing.T, userID string) (*gin.Engine, *workerMock.MockService) {
	gin.SetMode(gin.TestMode)
	apperror.Init()
	ctrl := gomock.NewController(t)
	svc := workerMock.NewMockService(ctrl)
	h := worker.NewHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.ContextUserID, userID)
		}
		c.Next()
	})
	r.GET("/workers", h.List)
	r.GET("/workers/:id", h.GetByID)
	r.POST("/workers", h.Create)
	r.PATCH("/workers/:id", h.Update)
	r.DELETE("/workers/:id", h.Delete)
	return r, svc
}

func detail(first string) worker.WorkerDetailResponse {
	return worker.WorkerDetailResponse{
		ID:        uuid.NewString(),
		FirstName: first,
		LastName:  "Doe",
		Email:     first + "@example.com",
		IsActive:  true,
	}
}

func TestHandler_Create(t *testing.T) {
	actor := uuid.New()

	t.Run("created with actor", func(t *testing.T) {
		r, svc := setupWorkerRouter(t, actor.String())

		svc.EXPECT().
			Create(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req worker.CreateWorkerRequest, actorID *uuid.UUID) (worker.WorkerDetailResponse, error) {
				assert.Equal(t, "ann@example.com", req.Email)
				require.NotNil(t, actorID)
				assert.Equal(t, actor, *actorID)
				return detail("ann"), nil
			})

		body := `{"first_name":"Ann","last_name":"Doe","email":"ann@example.com"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/workers", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, decodeEnvelope(t, w).Ok)
	})

	t.Run("duplicate email", func(t *testing.T) {
		r, svc := setupWorkerRouter(t, actor.String())

		svc.EXPECT().
			Create(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(worker.WorkerDetailResponse{}, workererrors.ErrWorkerAlreadyExists)

		body := `{"first_name":"Ann","last_name":"Doe","email":"ann@example.com"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/workers", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", decodeEnvelope(t, w).Error["code"])
	})

	t.Run("malformed json", func(t *testing.T) {
		r, _ := setupWorkerRouter(t, actor.String())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/workers", bytes.NewBufferString(`{"email":`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("last name required on the api", func(t *testing.T) {
		r, _ := setupWorkerRouter(t, actor.String())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/workers", bytes.NewBufferString(`{"first_name":"Ann","email":"ann@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "VALIDATION_ERROR", env.Error["code"])
		assert.Contains(t, env.Error["details"], "last_name")
	})

	t.Run("invalid actor id", func(t *testing.T) {
		r, _ := setupWorkerRouter(t, "not-a-uuid")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/workers", bytes.NewBufferString(`{"first_name":"A","last_name":"B","email":"a@b.co"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_List(t *testing.T) {
	t.Run("paginates short items", func(t *testing.T) {
		r, svc := setupWorkerRouter(t, uuid.NewString())

		svc.EXPECT().
			List(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, f worker.ListFilter) ([]worker.WorkerDetailResponse, error) {
				require.NotNil(t, f.IsActive)
				assert.True(t, *f.IsActive)
				require.NotNil(t, f.Position)
				assert.Equal(t, "Engineer", *f.Position)
				assert.Equal(t, "ann", f.Q)
				return []worker.WorkerDetailResponse{detail("a"), detail("b"), detail("c")}, nil
			})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/workers?is_active=true&position=Engineer&q=ann&page=2&page_size=2", nil))

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)

		var items []map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &items))
		require.Len(t, items, 1)
		assert.Equal(t, "c", items[0]["first_name"])
		assert.NotContains(t, items[0], "email")
		assert.EqualValues(t, 3, env.Meta["total"])
		assert.EqualValues(t, 2, env.Meta["totalPages"])
	})

	t.Run("bad is_active", func(t *testing.T) {
		r, _ := setupWorkerRouter(t, uuid.NewString())

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workers?is_active=maybe", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_GetUpdateDelete(t *testing.T) {
	id := uuid.NewString()

	t.Run("detail includes email", func(t *testing.T) {
		r, svc := setupWorkerRouter(t, uuid.NewString())
		svc.EXPECT().GetByID(gomock.Any(), id).Return(detail("ann"), nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workers/"+id, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"email":"ann@example.com"`)
		assert.Contains(t, w.Body.String(), `"hired_date"`)
	})

	t.Run("not found", func(t *testing.T) {
		r, svc := setupWorkerRouter(t, uuid.NewString())
		svc.EXPECT().GetByID(gomock.Any(), id).Return(worker.WorkerDetailResponse{}, workererrors.ErrWorkerNotFound)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workers/"+id, nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("partial update", func(t *testing.T) {
		r, svc := setupWorkerRouter(t, uuid.NewString())
		svc.EXPECT().
			Update(gomock.Any(), id, gomock.Any()).
			DoAndReturn(func(_ any, _ string, req worker.UpdateWorkerRequest) (worker.WorkerDetailResponse, error) {
				assert.Nil(t, req.FirstName)
				require.NotNil(t, req.IsActive)
				assert.False(t, *req.IsActive)
				return detail("ann"), nil
			})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/workers/"+id, bytes.NewBufferString(`{"is_active":false}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		r, svc := setupWorkerRouter(t, uuid.NewString())
		svc.EXPECT().Delete(gomock.Any(), id).Return(nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/workers/"+id, nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}
