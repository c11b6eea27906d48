package auth

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

type resetPasswordBody struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
	NewPassword      string `json:"new_password"`
}

// ResetPassword sets a new password after consuming a reset code
func ResetPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data resetPasswordBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Email == "" || data.VerificationCode == "" || data.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Email, verification code and new password are required",
			"requestID": requestID,
		})
		return
	}

	if err := validators.PasswordValidator(data.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	email := validators.NormalizeEmail(data.Email)

	if err := d.Codes.Verify(email, model.PurposeResetPassword, data.VerificationCode); err != nil {
		status, msg := verificationStatus(requestID, err)

		c.JSON(status, gin.H{
			"error":     msg,
			"requestID": requestID,
		})
		return
	}

	if err := d.Accounts.ResetPassword(email, data.NewPassword); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to reset password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successful, log in with your new password",
	})
}
