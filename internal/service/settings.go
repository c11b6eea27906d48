package service

import (
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/pkg/security"
	"fmt"
	"math"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minWorkers = 1
	maxWorkers = 20
)

// SettingKeys lists every per-user overridable setting
var SettingKeys = []string{
	"google_api_key",
	"google_api_base",
	"mineru_token",
	"mineru_api_base",
	"image_caption_model",
	"max_description_workers",
	"max_image_workers",
}

// ConfigService resolves effective configuration values, layering a user's
// overrides on top of system defaults. Secrets live encrypted in the
// settings row and never leave the server in clear text
type ConfigService struct {
	DB  *gorm.DB
	Box *security.SecretBox
}

func NewConfigService(db *gorm.DB, box *security.SecretBox) *ConfigService {
	return &ConfigService{DB: db, Box: box}
}

// EnsureSettings returns the user's settings row, creating an empty one
// on first access
func (s *ConfigService) EnsureSettings(userID string) (*model.UserSettings, error) {
	var settings model.UserSettings

	err := s.DB.Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}

	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to query settings, %w", err)
	}

	settings = model.UserSettings{UserID: userID}
	if err := s.DB.Create(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to create settings, %w", err)
	}

	return &settings, nil
}

// GoogleAPIKey returns the user's decrypted key if one is stored and
// readable, otherwise the system default. A key that no longer decrypts
// is treated as absent, features keep working on the default
func (s *ConfigService) GoogleAPIKey(settings *model.UserSettings) string {
	if settings != nil && settings.GoogleAPIKeyEncrypted != "" {
		plain, err := s.Box.Decrypt(settings.GoogleAPIKeyEncrypted)
		if err == nil {
			return plain
		}

		zap.L().Warn("Failed to decrypt stored Google API key, using system default",
			zap.Error(err),
			zap.String("userID", settings.UserID),
		)
	}

	return viper.GetString("ai.google_api_key")
}

func (s *ConfigService) GoogleAPIBase(settings *model.UserSettings) string {
	if settings != nil && settings.GoogleAPIBase != "" {
		return settings.GoogleAPIBase
	}

	return viper.GetString("ai.google_api_base")
}

func (s *ConfigService) MineruToken(settings *model.UserSettings) string {
	if settings != nil && settings.MineruTokenEncrypted != "" {
		plain, err := s.Box.Decrypt(settings.MineruTokenEncrypted)
		if err == nil {
			return plain
		}

		zap.L().Warn("Failed to decrypt stored MinerU token, using system default",
			zap.Error(err),
			zap.String("userID", settings.UserID),
		)
	}

	return viper.GetString("ai.mineru_token")
}

func (s *ConfigService) MineruAPIBase(settings *model.UserSettings) string {
	if settings != nil && settings.MineruAPIBase != "" {
		return settings.MineruAPIBase
	}

	return viper.GetString("ai.mineru_api_base")
}

func (s *ConfigService) ImageCaptionModel(settings *model.UserSettings) string {
	if settings != nil && settings.ImageCaptionModel != "" {
		return settings.ImageCaptionModel
	}

	return viper.GetString("ai.image_caption_model")
}

func (s *ConfigService) MaxDescriptionWorkers(settings *model.UserSettings) int {
	if settings != nil && settings.MaxDescriptionWorkers != nil {
		return *settings.MaxDescriptionWorkers
	}

	return viper.GetInt("ai.max_description_workers")
}

func (s *ConfigService) MaxImageWorkers(settings *model.UserSettings) int {
	if settings != nil && settings.MaxImageWorkers != nil {
		return *settings.MaxImageWorkers
	}

	return viper.GetInt("ai.max_image_workers")
}

// EffectiveSetting is one resolved entry of the effective config. Secrets
// only carry IsSet, plain settings only carry Value
type EffectiveSetting struct {
	Value  any    `json:"value,omitempty"`
	IsSet  *bool  `json:"is_set,omitempty"`
	Source string `json:"source"`
}

// EffectiveConfig reports every setting's resolved value and where it came
// from. Source says whether a user override is stored, even when a broken
// secret made the effective value fall back to the default
func (s *ConfigService) EffectiveConfig(settings *model.UserSettings) map[string]EffectiveSetting {
	googleKeySet := s.GoogleAPIKey(settings) != ""
	mineruTokenSet := s.MineruToken(settings) != ""

	return map[string]EffectiveSetting{
		"google_api_key": {
			IsSet:  &googleKeySet,
			Source: source(settings != nil && settings.GoogleAPIKeyEncrypted != ""),
		},
		"google_api_base": {
			Value:  s.GoogleAPIBase(settings),
			Source: source(settings != nil && settings.GoogleAPIBase != ""),
		},
		"mineru_token": {
			IsSet:  &mineruTokenSet,
			Source: source(settings != nil && settings.MineruTokenEncrypted != ""),
		},
		"mineru_api_base": {
			Value:  s.MineruAPIBase(settings),
			Source: source(settings != nil && settings.MineruAPIBase != ""),
		},
		"image_caption_model": {
			Value:  s.ImageCaptionModel(settings),
			Source: source(settings != nil && settings.ImageCaptionModel != ""),
		},
		"max_description_workers": {
			Value:  s.MaxDescriptionWorkers(settings),
			Source: source(settings != nil && settings.MaxDescriptionWorkers != nil),
		},
		"max_image_workers": {
			Value:  s.MaxImageWorkers(settings),
			Source: source(settings != nil && settings.MaxImageWorkers != nil),
		},
	}
}

// SettingsUpdate carries the fields of a settings update request. Nil
// means the field wasn't sent and stays untouched. Worker counts bind as
// floats because that's what JSON numbers are, they're only accepted
// when integral
type SettingsUpdate struct {
	GoogleAPIKey          *string  `json:"google_api_key"`
	GoogleAPIBase         *string  `json:"google_api_base"`
	MineruToken           *string  `json:"mineru_token"`
	MineruAPIBase         *string  `json:"mineru_api_base"`
	ImageCaptionModel     *string  `json:"image_caption_model"`
	MaxDescriptionWorkers *float64 `json:"max_description_workers"`
	MaxImageWorkers       *float64 `json:"max_image_workers"`
}

// UpdateSettings applies a partial update. Sending an empty string clears
// an override, out-of-range or non-integral worker counts clear too
// instead of erroring
func (s *ConfigService) UpdateSettings(settings *model.UserSettings, upd SettingsUpdate) error {
	if upd.GoogleAPIKey != nil {
		enc, err := s.Box.Encrypt(*upd.GoogleAPIKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt Google API key, %w", err)
		}

		settings.GoogleAPIKeyEncrypted = enc
	}

	if upd.MineruToken != nil {
		enc, err := s.Box.Encrypt(*upd.MineruToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt MinerU token, %w", err)
		}

		settings.MineruTokenEncrypted = enc
	}

	if upd.GoogleAPIBase != nil {
		settings.GoogleAPIBase = *upd.GoogleAPIBase
	}

	if upd.MineruAPIBase != nil {
		settings.MineruAPIBase = *upd.MineruAPIBase
	}

	if upd.ImageCaptionModel != nil {
		settings.ImageCaptionModel = *upd.ImageCaptionModel
	}

	if upd.MaxDescriptionWorkers != nil {
		settings.MaxDescriptionWorkers = coerceWorkers(*upd.MaxDescriptionWorkers)
	}

	if upd.MaxImageWorkers != nil {
		settings.MaxImageWorkers = coerceWorkers(*upd.MaxImageWorkers)
	}

	if err := s.DB.Save(settings).Error; err != nil {
		return fmt.Errorf("failed to store settings, %w", err)
	}

	return nil
}

// ResetSetting clears exactly one user override so the system default
// applies again
func (s *ConfigService) ResetSetting(settings *model.UserSettings, key string) error {
	switch key {
	case "google_api_key":
		settings.GoogleAPIKeyEncrypted = ""
	case "google_api_base":
		settings.GoogleAPIBase = ""
	case "mineru_token":
		settings.MineruTokenEncrypted = ""
	case "mineru_api_base":
		settings.MineruAPIBase = ""
	case "image_caption_model":
		settings.ImageCaptionModel = ""
	case "max_description_workers":
		settings.MaxDescriptionWorkers = nil
	case "max_image_workers":
		settings.MaxImageWorkers = nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSettingKey, key)
	}

	if err := s.DB.Save(settings).Error; err != nil {
		return fmt.Errorf("failed to reset setting, %w", err)
	}

	return nil
}

func coerceWorkers(v float64) *int {
	if v != math.Trunc(v) {
		return nil
	}

	n := int(v)
	if n < minWorkers || n > maxWorkers {
		return nil
	}

	return &n
}

func source(userSet bool) string {
	if userSet {
		return "user"
	}

	return "system"
}
