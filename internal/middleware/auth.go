package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/moovie-social/internal/utils"
)

const userIDKey = "user_id"

// Claims JWT 声明
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth 必须登录中间件
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil || claims.UserID == 0 {
			utils.Unauthorized(c, "未登录或登录已过期")
			c.Abort()
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)

		// 滑动续期：有效期消耗过半时通过响应头下发新 Token
		if shouldRefresh(claims) {
			expiry := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
			if newToken, err := GenerateToken(claims.UserID, claims.Username, claims.Role, jwtSecret, expiry); err == nil {
				c.Header("X-Refresh-Token", newToken)
			}
		}

		c.Next()
	}
}

// extractClaims 从 Authorization Header 或 Cookie 中提取 JWT Claims
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	var tokenString string

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	} else if cookie, err := c.Cookie("token"); err == nil {
		tokenString = cookie
	}

	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// GetUserID 从上下文获取用户 ID（未登录返回 0）
func GetUserID(c *gin.Context) uint {
	if userID, exists := c.Get(userIDKey); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}

// GenerateToken 生成 JWT Token
func GenerateToken(userID uint, username, role, jwtSecret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// shouldRefresh 已消耗总有效期的 50% 以上
func shouldRefresh(claims *Claims) bool {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return false
	}
	total := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	return time.Since(claims.IssuedAt.Time) > total/2
}

// RequireJSON 拒绝非 JSON 请求体
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > 0 && !strings.HasPrefix(c.ContentType(), "application/json") {
			utils.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "请求体必须为 JSON")
			c.Abort()
			return
		}
		c.Next()
	}
}
