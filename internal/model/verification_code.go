package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PurposeRegister      = "register"
	PurposeResetPassword = "reset_password"
)

// VerificationCode is a single-use 6-digit email code. Codes are keyed by
// email, not user ID, because registration codes are requested before the
// account exists.
type VerificationCode struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Email     string    `gorm:"size:120;index;not null"`
	Code      string    `gorm:"size:6;not null"`
	Purpose   string    `gorm:"size:20;index;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	Attempts  int       `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (v *VerificationCode) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

func ValidPurpose(p string) bool {
	return p == PurposeRegister || p == PurposeResetPassword
}
