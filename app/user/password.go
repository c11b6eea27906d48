package user

import (
	"deckforge/auth-api/internal"
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/internal/service"
	"deckforge/auth-api/pkg/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type passwordBody struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func PasswordChange(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("currentUser").(*model.User)

	var data passwordBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.OldPassword == "" || data.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Both old and new passwords are required",
			"requestID": requestID,
		})
		return
	}

	if err := d.Accounts.ChangePassword(user, data.OldPassword, data.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Current password is incorrect",
				"requestID": requestID,
			})
		case validators.IsValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to change password", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password changed successfully",
	})
}
