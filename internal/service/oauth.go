package service

import (
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/pkg/validators"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OAuthService maps an external identity onto a local account
type OAuthService struct {
	DB *gorm.DB
}

func NewOAuthService(db *gorm.DB) *OAuthService {
	return &OAuthService{DB: db}
}

// Resolve finds or creates the account behind an OAuth identity, in order:
//
//  1. A (provider, external id) match wins, the avatar is refreshed if the
//     provider reports a new one.
//  2. An account with the same email gets this identity linked onto it.
//     Email ownership is trusted here, both supported providers verify
//     addresses before handing them out.
//  3. Otherwise a fresh account is created with a username derived from
//     the display name and no password.
func (s *OAuthService) Resolve(provider, externalID, email, displayName, avatarURL string) (*model.User, error) {
	email = validators.NormalizeEmail(email)

	var user *model.User

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.User

		err := tx.
			Where("o_auth_provider = ? AND o_auth_id = ?", provider, externalID).
			First(&existing).
			Error
		if err == nil {
			if avatarURL != "" && existing.AvatarURL != avatarURL {
				err := tx.Model(&existing).Update("avatar_url", avatarURL).Error
				if err != nil {
					return fmt.Errorf("failed to refresh avatar, %w", err)
				}
			}

			user = &existing
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to query identity, %w", err)
		}

		err = tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			changes := map[string]any{
				"o_auth_provider": provider,
				"o_auth_id":       externalID,
			}

			if avatarURL != "" && existing.AvatarURL == "" {
				changes["avatar_url"] = avatarURL
			}

			if err := tx.Model(&existing).Updates(changes).Error; err != nil {
				return fmt.Errorf("failed to link identity, %w", err)
			}

			zap.L().Info("Linked OAuth identity to existing account",
				zap.String("provider", provider),
				zap.String("userID", existing.ID),
			)

			user = &existing
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to query user, %w", err)
		}

		username, err := deriveUsername(tx, displayName, email)
		if err != nil {
			return err
		}

		created := &model.User{
			Username:      username,
			Email:         email,
			IsActive:      true,
			Role:          model.RoleUser,
			OAuthProvider: &provider,
			OAuthID:       &externalID,
			AvatarURL:     avatarURL,
			Settings:      &model.UserSettings{},
		}

		if err := tx.Create(created).Error; err != nil {
			return fmt.Errorf("failed to create user, %w", err)
		}

		zap.L().Info("New OAuth user created",
			zap.String("provider", provider),
			zap.String("userID", created.ID),
			zap.String("username", username),
		)

		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// deriveUsername turns a display name into a unique username by probing
// numeric suffixes until one is free
func deriveUsername(tx *gorm.DB, displayName, email string) (string, error) {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(displayName), " ", "_"))
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
		base = strings.ToLower(base)
	}

	candidate := base
	for counter := 1; ; counter++ {
		var count int64

		err := tx.Model(model.User{}).Where("username = ?", candidate).Count(&count).Error
		if err != nil {
			return "", fmt.Errorf("failed to probe username, %w", err)
		}

		if count == 0 {
			return candidate, nil
		}

		candidate = fmt.Sprintf("%s_%d", base, counter)
	}
}
