package workerimport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/middleware"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/response"
	"github.com/OlegKumachev/kiout-test-backend/internal/worker"
	importerrors "github.com/OlegKumachev/kiout-test-backend/internal/workerimport/errors"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	formField        = "file"
	idempotencyTTL   = 24 * time.Hour
	multipartReserve = 1 << 20
)

type Handler struct {
	service  Service
	rdb      *redis.Client
	maxBytes int64
	logger   *zap.Logger
}

// NewHandler builds the import/export handler. rdb enables idempotent
// replays and may be nil.
func NewHandler(service Service, rdb *redis.Client, maxBytes int64, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("workerimport.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("workerimport.handler")
	}
	return &Handler{service: service, rdb: rdb, maxBytes: maxBytes, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("workerimport request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Import(c *gin.Context) {
	lockKey, _ := c.Get(middleware.IdempotencyLockKey)
	cacheKey, _ := c.Get(middleware.IdempotencyCacheKey)

	if h.rdb != nil {
		if lk, ok := lockKey.(string); ok && lk != "" {
			defer h.rdb.Del(c.Request.Context(), lk)
		}
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartReserve)

	fileHeader, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeServiceError(c, importerrors.ErrFileTooLarge)
			return
		}
		h.writeServiceError(c, importerrors.ErrFileRequired)
		return
	}
	if fileHeader.Size > h.maxBytes {
		h.writeServiceError(c, importerrors.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.writeServiceError(c, importerrors.ErrMalformedBatch.WithDetails(nil, err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		h.writeServiceError(c, importerrors.ErrMalformedBatch.WithDetails(nil, err))
		return
	}
	if int64(len(content)) > h.maxBytes {
		h.writeServiceError(c, importerrors.ErrFileTooLarge)
		return
	}

	actorID, err := worker.ActorFromContext(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	report, err := h.service.ImportFile(c.Request.Context(), fileHeader.Filename, content, actorID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp := ImportResponse{Success: true, ImportReport: report}

	if h.rdb != nil {
		if ck, ok := cacheKey.(string); ok && ck != "" {
			if payload, marshalErr := json.Marshal(resp); marshalErr == nil {
				_ = h.rdb.Set(c.Request.Context(), ck, payload, idempotencyTTL).Err()
			}
		}
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Export(c *gin.Context) {
	filter, err := worker.ParseListFilter(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	file, err := h.service.Export(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
