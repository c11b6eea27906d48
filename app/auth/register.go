// Package auth contains the handlers for registration, login, tokens,
// verification codes and OAuth
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

type registerBody struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	VerificationCode string `json:"verification_code"`
}

// Register creates an account. The email must have been verified with a
// register code first, the code is consumed here
func Register(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.VerificationCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Verification code is required",
			"requestID": requestID,
		})
		return
	}

	email := validators.NormalizeEmail(data.Email)

	if err := d.Codes.Verify(email, model.PurposeRegister, data.VerificationCode); err != nil {
		status, msg := verificationStatus(requestID, err)

		c.JSON(status, gin.H{
			"error":     msg,
			"requestID": requestID,
		})
		return
	}

	user, err := d.Accounts.Register(data.Username, email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{
				"error":     err.Error(),
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

			zap.L().Error("Failed to register user", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	pair, err := d.Tokens.Issue(user, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to issue tokens", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Registration successful",
		"user":          user.Self(),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
	})
}
