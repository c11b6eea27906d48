package middleware

import (
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/internal/service"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequireAuth validates the access token and loads the account behind it.
// Handlers downstream can rely on userID and currentUser being set.
// The account is re-read on every request so a disable or delete takes
// effect immediately, not when the token expires
func RequireAuth(tokens *service.TokenService, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		tokenStr := extractToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authentication required",
				"requestID": requestID,
			})
			return
		}

		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authentication required",
				"requestID": requestID,
			})

			zap.L().Debug("Failed to parse access token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		var user model.User

		err = db.Where("id = ?", claims.UserID).First(&user).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "User not found",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to load user", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Account is disabled",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", user.ID)
		c.Set("currentUser", &user)
		c.Next()
	}
}

// OptionalAuth loads the account when a valid token is present and stays
// silent otherwise. currentUser is only set for active accounts
func OptionalAuth(tokens *service.TokenService, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			c.Next()
			return
		}

		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			c.Next()
			return
		}

		var user model.User

		if err := db.Where("id = ?", claims.UserID).First(&user).Error; err == nil && user.IsActive {
			c.Set("userID", user.ID)
			c.Set("currentUser", &user)
		}

		c.Next()
	}
}

// RequireAdmin must run after RequireAuth
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		user := c.MustGet("currentUser").(*model.User)
		if user.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Admin access required",
				"requestID": requestID,
			})
			return
		}

		c.Next()
	}
}

// extractToken prefers the Authorization header and falls back to the
// access_token cookie for browser clients
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok && after != "" {
		return after
	}

	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie
	}

	return ""
}
