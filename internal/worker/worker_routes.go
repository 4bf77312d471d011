package worker

import (
	"github.com/OlegKumachev/kiout-test-backend/internal/domain"
	"github.com/OlegKumachev/kiout-test-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	jwtSecret string,
	logger *zap.Logger,
) {
	workers := r.Group("/workers")
	workers.Use(middleware.AuthMiddleware(jwtSecret))
	workers.Use(middleware.ExtractUserID())
	workers.Use(middleware.ContextLogger(logger))
	{
		workers.GET("",
			middleware.RateLimitByUser(5, 20),
			middleware.RBACAuthorize(rbacService, domain.ResourceWorker, domain.ActionRead),
			handler.List,
		)

		workers.GET("/:id",
			middleware.RateLimitByUser(5, 20),
			middleware.RBACAuthorize(rbacService, domain.ResourceWorker, domain.ActionRead),
			handler.GetByID,
		)

		workers.POST("",
			middleware.RateLimitByUser(2, 5),
			middleware.RBACAuthorize(rbacService, domain.ResourceWorker, domain.ActionCreate),
			handler.Create,
		)

		workers.PATCH("/:id",
			middleware.RateLimitByUser(2, 5),
			middleware.RBACAuthorize(rbacService, domain.ResourceWorker, domain.ActionUpdate),
			handler.Update,
		)

		workers.DELETE("/:id",
			middleware.RateLimitByUser(1, 3),
			middleware.RBACAuthorize(rbacService, domain.ResourceWorker, domain.ActionDelete),
			handler.Delete,
		)
	}
}
