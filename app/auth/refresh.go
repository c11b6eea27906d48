package auth

import (
	"deckforge/auth-api/internal"
	"deckforge/auth-api/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh trades a refresh token for a fresh access token. The account is
// re-checked so a deleted or disabled user can't keep refreshing until
// their token runs out
func Refresh(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data refreshBody
	if err := c.ShouldBind(&data); err != nil || data.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Refresh token is required",
			"requestID": requestID,
		})
		return
	}

	claims, err := d.Tokens.ParseRefresh(data.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Refresh token invalid",
			"requestID": requestID,
		})

		zap.L().Debug("Failed to parse refresh token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	user, err := d.Accounts.ByID(claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     "Account is disabled",
			"requestID": requestID,
		})
		return
	}

	access, err := d.Tokens.IssueAccess(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to issue access token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": access,
		"token_type":   "Bearer",
	})
}
