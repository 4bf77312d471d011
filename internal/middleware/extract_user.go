package middleware

import (
	autherrors "github.com/OlegKumachev/kiout-test-backend/internal/auth/errors"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"

	"github.com/gin-gonic/gin"
)

// ExtractUserID must run after AuthMiddleware. It republishes the user id
// under user_id_validated once its type is known.
func ExtractUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ContextUserID)
		if !exists {
			abortWith(c, apperror.ErrUnauthorized)
			return
		}

		userIDStr, ok := userID.(string)
		if !ok || userIDStr == "" {
			abortWith(c, autherrors.ErrInvalidUserID)
			return
		}

		c.Set("user_id_validated", userIDStr)
		c.Next()
	}
}
