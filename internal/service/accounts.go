package service

import (
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/pkg/security"
	"deckforge/auth-api/pkg/validators"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountService owns user rows: registration, login checks, profile and
// password updates. Token issuance lives in TokenService, handlers compose
// the two
type AccountService struct {
	DB    *gorm.DB
	Argon *security.ArgonHash
}

func NewAccountService(db *gorm.DB, argon *security.ArgonHash) *AccountService {
	return &AccountService{DB: db, Argon: argon}
}

// Register creates a user together with its default settings row. The two
// inserts share a transaction, an account without settings must never be
// observable
func (s *AccountService) Register(username, email, password string) (*model.User, error) {
	if err := validators.UsernameValidator(username); err != nil {
		return nil, err
	}

	if err := validators.EmailValidator(email); err != nil {
		return nil, err
	}

	if err := validators.PasswordValidator(password); err != nil {
		return nil, err
	}

	email = validators.NormalizeEmail(email)

	taken, err := s.exists("username = ?", username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.exists("email = ?", email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := s.Argon.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Role:         model.RoleUser,
		Settings:     &model.UserSettings{},
	}

	if err := s.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	zap.L().Info("New user registered",
		zap.String("userID", user.ID),
		zap.String("username", username),
	)

	return user, nil
}

// Login resolves an email/password pair to a user. Unknown email and wrong
// password both map to ErrInvalidCredentials. The active flag is only
// looked at after the password checks out, so unauthenticated callers
// can't probe which accounts are disabled
func (s *AccountService) Login(email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.ByEmail(email)
	if err != nil {
		if err == ErrAccountNotFound {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	ok, err := s.Argon.VerifyPasswd(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return user, nil
}

func (s *AccountService) ByID(id string) (*model.User, error) {
	var user model.User

	if err := s.DB.Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAccountNotFound
		}

		return nil, fmt.Errorf("failed to query user, %w", err)
	}

	return &user, nil
}

func (s *AccountService) ByEmail(email string) (*model.User, error) {
	var user model.User

	err := s.DB.Where("email = ?", validators.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAccountNotFound
		}

		return nil, fmt.Errorf("failed to query user, %w", err)
	}

	return &user, nil
}

// ProfileUpdate carries optional profile changes. Nil means leave as is
type ProfileUpdate struct {
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

func (s *AccountService) UpdateProfile(user *model.User, upd ProfileUpdate) error {
	changes := map[string]any{}

	if upd.Username != nil && *upd.Username != user.Username {
		if err := validators.UsernameValidator(*upd.Username); err != nil {
			return err
		}

		taken, err := s.exists("username = ?", *upd.Username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}

		changes["username"] = *upd.Username
	}

	if upd.AvatarURL != nil {
		changes["avatar_url"] = *upd.AvatarURL
	}

	if len(changes) == 0 {
		return nil
	}

	if err := s.DB.Model(user).Updates(changes).Error; err != nil {
		return fmt.Errorf("failed to update profile, %w", err)
	}

	return nil
}

// ChangePassword swaps the password after re-verifying the old one
func (s *AccountService) ChangePassword(user *model.User, oldPassword, newPassword string) error {
	ok, err := s.Argon.VerifyPasswd(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return ErrInvalidCredentials
	}

	return s.setPassword(user, newPassword)
}

// ResetPassword sets a new password for the account behind an email.
// Callers must have consumed a reset_password verification code first
func (s *AccountService) ResetPassword(email, newPassword string) error {
	user, err := s.ByEmail(email)
	if err != nil {
		return err
	}

	if err := s.setPassword(user, newPassword); err != nil {
		return err
	}

	zap.L().Info("Password reset", zap.String("userID", user.ID))
	return nil
}

func (s *AccountService) setPassword(user *model.User, newPassword string) error {
	if err := validators.PasswordValidator(newPassword); err != nil {
		return err
	}

	hash, err := s.Argon.GenerateFromPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	err = s.DB.Model(user).Update("password_hash", hash).Error
	if err != nil {
		return fmt.Errorf("failed to store password, %w", err)
	}

	return nil
}

func (s *AccountService) exists(query string, args ...any) (bool, error) {
	var count int64

	err := s.DB.Model(model.User{}).Where(query, args...).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check uniqueness, %w", err)
	}

	return count > 0, nil
}
