package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"aiResume/internal/auth"
)

// OptionalAuthMiddleware 尝试解析访问令牌但从不拒绝请求。
// 匿名可用的接口（如文本润色）用它来区分限流主体。
func OptionalAuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if claims, err := authService.ValidateToken(parts[1]); err == nil && claims.TokenType == "access" {
				c.Set("userID", claims.UserID)
			}
		}
		c.Next()
	}
}
