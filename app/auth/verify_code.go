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

type verifyCodeBody struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	CodeType string `json:"code_type"`
}

// VerifyCode pre-validates a code for a form without consuming it. The
// register and reset flows re-verify on submit, which is when the code
// actually gets used up
func VerifyCode(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data verifyCodeBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Email == "" || data.Code == "" || !model.ValidPurpose(data.CodeType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Email, code and code_type are required",
			"requestID": requestID,
		})
		return
	}

	err := d.Codes.Peek(validators.NormalizeEmail(data.Email), data.CodeType, data.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Verification code not found or already used"})
		case errors.Is(err, service.ErrCodeExpired):
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Verification code expired, request a new one"})
		case errors.Is(err, service.ErrCodeMismatch):
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Verification code doesn't match"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to check code", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}
