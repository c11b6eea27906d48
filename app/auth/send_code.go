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

type sendCodeBody struct {
	Email    string `json:"email"`
	CodeType string `json:"code_type"`
}

// SendCode mails a verification code for registration or password reset.
// For reset codes an unknown email still gets a success response, the
// endpoint must not reveal which addresses have accounts
func SendCode(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data sendCodeBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if !model.ValidPurpose(data.CodeType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid code type",
			"requestID": requestID,
		})
		return
	}

	if !d.Mailer.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Mail service is not configured",
			"requestID": requestID,
		})
		return
	}

	email := validators.NormalizeEmail(data.Email)

	_, err := d.Accounts.ByEmail(email)
	registered := err == nil
	if err != nil && !errors.Is(err, service.ErrAccountNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check email", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	switch data.CodeType {
	case model.PurposeRegister:
		if registered {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "This email is already registered",
				"requestID": requestID,
			})
			return
		}
	case model.PurposeResetPassword:
		if !registered {
			c.JSON(http.StatusOK, gin.H{
				"message": "Verification code sent, check your inbox",
			})
			return
		}
	}

	allowed, wait, err := d.Codes.CanIssue(email, data.CodeType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check code cooldown", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "A code was sent recently, wait before requesting another",
			"wait_seconds": wait,
			"requestID":    requestID,
		})
		return
	}

	code, err := d.Codes.Issue(email, data.CodeType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to issue code", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	err = d.Mailer.SendVerificationCode(email, code.Code, data.CodeType, int(service.CodeTTL.Minutes()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to send verification email",
			"requestID": requestID,
		})

		zap.L().Error("Failed to send verification email", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Verification code sent, check your inbox",
		"expires_in": int(service.CodeTTL.Seconds()),
	})
}
