package workerimport

import (
	"github.com/OlegKumachev/kiout-test-backend/internal/domain"
	"github.com/OlegKumachev/kiout-test-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	redisClient *redis.Client,
	jwtSecret string,
	logger *zap.Logger,
) {
	workers := r.Group("/workers")
	workers.Use(middleware.AuthMiddleware(jwtSecret))
	workers.Use(middleware.ExtractUserID())
	workers.Use(middleware.ContextLogger(logger))
	{
		workers.POST("/import",
			middleware.RateLimitByUser(0.2, 2),
			middleware.RBACAuthorize(rbacService, domain.ResourceWorker, domain.ActionImport),
			middleware.Idempotency(redisClient),
			handler.Import,
		)

		workers.GET("/export",
			middleware.RateLimitByUser(0.5, 2),
			middleware.RBACAuthorize(rbacService, domain.ResourceWorker, domain.ActionRead),
			handler.Export,
		)
	}
}
