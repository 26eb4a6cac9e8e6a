package middleware

import (
	"net/http"
	"strings"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

type AuthzConfig struct {
	Secret string
	// Role, when set, restricts the route to that role. Admins always pass.
	Role string
}

// AuthzMiddleware validates the bearer token and stores the authenticated
// identity (user_id, user_role, user_name) on the request context.
func AuthzMiddleware(config AuthzConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token_format",
				"message": "Authorization header must use Bearer token",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(config.Secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Token validation failed",
			})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_claims",
				"message": "Token claims are invalid",
			})
			return
		}

		if exp, ok := claims["exp"].(float64); ok {
			if time.Unix(int64(exp), 0).Before(time.Now()) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "expired_token",
					"message": "Token has expired",
				})
				return
			}
		}

		if iss, ok := claims["iss"].(string); ok && iss != services.TokenIssuer {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_issuer",
				"message": "Token issuer is invalid",
			})
			return
		}

		role, _ := claims["role"].(string)
		if config.Role != "" && role != config.Role && role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "insufficient_role",
				"message": "User role does not have access to this resource",
			})
			return
		}

		c.Set("user_id", claims["user_id"])
		c.Set("user_role", role)
		c.Set("user_name", claims["name"])

		c.Next()
	}
}

// CurrentUser rebuilds the acting user from the claims the middleware stored.
// Only identity and role are populated; that is all ownership checks need.
func CurrentUser(c *gin.Context) (models.User, bool) {
	userIDValue, exists := c.Get("user_id")
	if !exists {
		return models.User{}, false
	}
	userIDStr, ok := userIDValue.(string)
	if !ok {
		return models.User{}, false
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return models.User{}, false
	}

	role, _ := c.Get("user_role")
	roleStr, _ := role.(string)
	name, _ := c.Get("user_name")
	nameStr, _ := name.(string)

	return models.User{ID: userID, Role: roleStr, Name: nameStr}, true
}
