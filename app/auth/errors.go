package auth

import (
	"deckforge/auth-api/internal/service"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// verificationStatus maps a code engine error to a response status and a
// client-safe message. Unexpected errors log here and come back as a
// generic 500
func verificationStatus(requestID string, err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound):
		return http.StatusBadRequest, "Verification code not found or already used"
	case errors.Is(err, service.ErrCodeExpired):
		return http.StatusBadRequest, "Verification code expired, request a new one"
	case errors.Is(err, service.ErrCodeTooManyAttempts):
		return http.StatusBadRequest, "Too many attempts, request a new code"
	case errors.Is(err, service.ErrCodeMismatch):
		return http.StatusBadRequest, err.Error()
	default:
		zap.L().Error("Verification failed", zap.Error(err), zap.String("requestID", requestID))
		return http.StatusInternalServerError, "Internal server error"
	}
}
