package service

import (
	"deckforge/auth-api/internal/model"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CodeCleanup periodically deletes verification codes past any use. Rows
// are kept for a day after creation because the issue cooldown looks at
// the most recent code even when it's used or expired
func CodeCleanup(t time.Duration, db *gorm.DB) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Code cleanup attached", zap.Duration("tick_every", t))

	for range ticker.C {
		res := db.
			Where("created_at < ?", time.Now().Add(-24*time.Hour)).
			Delete(model.VerificationCode{})
		if res.Error != nil {
			zap.L().Error("Failed to cleanup verification codes", zap.Error(res.Error))
			continue
		}

		if res.RowsAffected > 0 {
			zap.L().Debug("Cleaned up old verification codes", zap.Int64("count", res.RowsAffected))
		}
	}
}
