package middleware

import (
	"context"
	"net/http"
	"strings"

	"Lee_Social/internal/pkg"

	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// TokenStore 校验 access token 是否为该用户当前的会话
type TokenStore interface {
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
}

func AuthMiddleware(tokens *pkg.TokenManager, store TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "authentication credentials were not provided"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization format"})
			return
		}

		tokenStr := parts[1]
		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
			return
		}

		// redis校验是否是正确的token
		origin, err := store.GetUserToken(c.Request.Context(), claims.UserID)
		if err != nil || origin != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "account has been logged in elsewhere"})
			return
		}

		// 校验通过后更新过期时间
		if err := store.ExtendUserToken(c.Request.Context(), claims.UserID); err != nil {
			pkg.LogErrorWithUser(claims.UserID, err, "extend session failed")
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}
