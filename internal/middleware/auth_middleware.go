/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-14 09:18:02
 * @FilePath: \seo-assistant\internal\middleware\auth_middleware.go
 * @LastEditTime: 2025-10-14 09:18:07
 */
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware 基于共享密钥校验 JWT 的合法性，保护受限路由。
type AuthMiddleware struct {
	secret string
}

// NewAuthMiddleware 创建鉴权中间件实例，注入 JWT 签名密钥。
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

// Handle 返回 Gin 中间件，验证 Bearer Token 并把用户身份写入上下文。
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		tokenString := strings.TrimSpace(authHeader[7:])
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return []byte(m.secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		userID, ok := claimUserID(claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		c.Set("claims", claims)
		c.Set("userID", userID)
		c.Set("isAdmin", claimIsAdmin(claims))
		c.Next()
	}
}

// claimUserID 从 sub 声明解析用户 ID，JWT 数值统一按 float64 解码。
func claimUserID(claims jwt.MapClaims) (uint, bool) {
	switch sub := claims["sub"].(type) {
	case float64:
		if sub < 0 {
			return 0, false
		}
		return uint(sub), true
	case string:
		var id uint
		for _, r := range sub {
			if r < '0' || r > '9' {
				return 0, false
			}
			id = id*10 + uint(r-'0')
		}
		return id, sub != ""
	default:
		return 0, false
	}
}

func claimIsAdmin(claims jwt.MapClaims) bool {
	if admin, ok := claims["admin"].(bool); ok {
		return admin
	}
	return false
}
