package service

import (
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/pkg/security"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CodeTTL is how long an issued code stays valid
const CodeTTL = 5 * time.Minute

const (
	codeLength   = 6
	codeCooldown = 60 * time.Second
	codeAttempts = 5
)

// CodeService hands out and checks one-time verification codes. A code is
// bound to an (email, purpose) pair and at most one unused code exists per
// pair at any time
type CodeService struct {
	DB *gorm.DB
}

func NewCodeService(db *gorm.DB) *CodeService {
	return &CodeService{DB: db}
}

// CanIssue reports whether a new code may be requested for the pair and,
// if not, how many seconds remain. The cooldown counts from the most
// recently created code whether or not it was used
func (s *CodeService) CanIssue(email, purpose string) (bool, int, error) {
	var last model.VerificationCode

	err := s.DB.
		Where("email = ? AND purpose = ?", email, purpose).
		Order("created_at DESC").
		First(&last).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return true, 0, nil
		}

		return false, 0, fmt.Errorf("failed to query last code, %w", err)
	}

	age := time.Since(last.CreatedAt)
	if age < codeCooldown {
		return false, int((codeCooldown - age).Seconds()) + 1, nil
	}

	return true, 0, nil
}

// Issue supersedes any unused codes for the pair and creates a fresh one.
// Both happen in one transaction so a crash can't leave two active codes
func (s *CodeService) Issue(email, purpose string) (*model.VerificationCode, error) {
	digits, err := security.GenerateDigitCode(codeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code, %w", err)
	}

	code := &model.VerificationCode{
		Email:     email,
		Code:      digits,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(CodeTTL),
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Model(model.VerificationCode{}).
			Where("email = ? AND purpose = ? AND used = ?", email, purpose, false).
			Update("used", true).
			Error
		if err != nil {
			return fmt.Errorf("failed to supersede old codes, %w", err)
		}

		if err := tx.Create(code).Error; err != nil {
			return fmt.Errorf("failed to store code, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return code, nil
}

// Verify checks a submitted code against the active one for the pair.
// A consumed code and a never-requested code both come back as
// ErrCodeNotFound. Expiry doesn't burn an attempt, everything past the
// expiry check does, including a correct guess
func (s *CodeService) Verify(email, purpose, submitted string) error {
	var code model.VerificationCode

	err := s.DB.
		Where("email = ? AND purpose = ? AND used = ?", email, purpose, false).
		Order("created_at DESC").
		First(&code).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrCodeNotFound
		}

		return fmt.Errorf("failed to query code, %w", err)
	}

	if time.Now().After(code.ExpiresAt) {
		return ErrCodeExpired
	}

	if code.Attempts >= codeAttempts {
		return ErrCodeTooManyAttempts
	}

	// The guarded update makes concurrent verifies serialize on the row.
	// Whoever loses the race re-reads to find out what actually happened
	res := s.DB.
		Model(model.VerificationCode{}).
		Where("id = ? AND used = ? AND attempts < ?", code.ID, false, codeAttempts).
		Update("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to count attempt, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return s.recheck(code.ID)
	}

	// Codes are compared as strings, leading zeros matter
	if code.Code != submitted {
		left := codeAttempts - (code.Attempts + 1)
		return &CodeMismatchError{AttemptsLeft: left}
	}

	res = s.DB.
		Model(model.VerificationCode{}).
		Where("id = ? AND used = ?", code.ID, false).
		Update("used", true)
	if res.Error != nil {
		return fmt.Errorf("failed to consume code, %w", res.Error)
	}

	// Someone else consumed it between our two updates
	if res.RowsAffected == 0 {
		return ErrCodeNotFound
	}

	return nil
}

// Peek checks a code without consuming it or burning an attempt, meant
// for pre-validating a form before the real submit
func (s *CodeService) Peek(email, purpose, submitted string) error {
	var code model.VerificationCode

	err := s.DB.
		Where("email = ? AND purpose = ? AND used = ?", email, purpose, false).
		Order("created_at DESC").
		First(&code).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrCodeNotFound
		}

		return fmt.Errorf("failed to query code, %w", err)
	}

	if time.Now().After(code.ExpiresAt) {
		return ErrCodeExpired
	}

	if code.Code != submitted {
		return ErrCodeMismatch
	}

	return nil
}

func (s *CodeService) recheck(id string) error {
	var code model.VerificationCode

	if err := s.DB.Where("id = ?", id).First(&code).Error; err != nil {
		return fmt.Errorf("failed to re-read code, %w", err)
	}

	if code.Used {
		return ErrCodeNotFound
	}

	return ErrCodeTooManyAttempts
}
