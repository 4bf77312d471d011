package worker

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/OlegKumachev/kiout-test-backend/internal/middleware"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/response"
	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("worker.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("worker.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("worker request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create worker bind failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	actorID, err := ActorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req, actorID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) List(c *gin.Context) {
	filter, err := ParseListFilter(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	start, end := response.PageBounds(len(items), page, pageSize)
	out := make([]WorkerResponse, 0, end-start)
	for _, item := range items[start:end] {
		out = append(out, item.Short())
	}

	meta := response.NewPaginationMeta(int64(len(items)), page, pageSize)
	response.Success(c, http.StatusOK, out, &meta)
}

func (h *Handler) GetByID(c *gin.Context) {
	resp, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	var req UpdateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http update worker bind failed", zap.String("worker_id", id), zap.Error(err))
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	resp, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.NoContent(c)
}

// ParseListFilter reads is_active, position and q from the query string.
func ParseListFilter(c *gin.Context) (ListFilter, error) {
	var filter ListFilter

	if raw, ok := c.GetQuery("is_active"); ok && strings.TrimSpace(raw) != "" {
		active, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return ListFilter{}, apperror.InvalidField("is_active")
		}
		filter.IsActive = &active
	}

	if raw, ok := c.GetQuery("position"); ok {
		position := strings.TrimSpace(raw)
		filter.Position = &position
	}

	filter.Q = strings.TrimSpace(c.Query("q"))
	return filter, nil
}

// ActorFromContext returns the authenticated user id, or nil when the request
// carries none.
func ActorFromContext(c *gin.Context) (*uuid.UUID, error) {
	raw := c.GetString(middleware.ContextUserID)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, workererrors.ErrInvalidActorID
	}
	return &id, nil
}
