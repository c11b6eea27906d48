package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSettings holds per-user overrides for the AI pipeline configuration.
// Secret values (API keys, tokens) are stored as cipher output only; the
// plaintext never touches the database.
type UserSettings struct {
	ID     string `gorm:"primaryKey;size:36"`
	UserID string `gorm:"size:36;uniqueIndex;not null"`

	GoogleAPIKeyEncrypted string `gorm:"type:text"`
	GoogleAPIBase         string `gorm:"size:500"`
	MineruTokenEncrypted  string `gorm:"type:text"`
	MineruAPIBase         string `gorm:"size:500"`
	ImageCaptionModel     string `gorm:"size:100"`

	// NULL means "no override", fall through to the system default
	MaxDescriptionWorkers *int
	MaxImageWorkers       *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *UserSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Snapshot is the settings row as returned to its owner. Secrets are reduced
// to has_* booleans.
type Snapshot struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	GoogleAPIBase         string    `json:"google_api_base,omitempty"`
	MineruAPIBase         string    `json:"mineru_api_base,omitempty"`
	ImageCaptionModel     string    `json:"image_caption_model,omitempty"`
	MaxDescriptionWorkers *int      `json:"max_description_workers"`
	MaxImageWorkers       *int      `json:"max_image_workers"`
	HasGoogleAPIKey       bool      `json:"has_google_api_key"`
	HasMineruToken        bool      `json:"has_mineru_token"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (s *UserSettings) Snapshot() Snapshot {
	return Snapshot{
		ID:                    s.ID,
		UserID:                s.UserID,
		GoogleAPIBase:         s.GoogleAPIBase,
		MineruAPIBase:         s.MineruAPIBase,
		ImageCaptionModel:     s.ImageCaptionModel,
		MaxDescriptionWorkers: s.MaxDescriptionWorkers,
		MaxImageWorkers:       s.MaxImageWorkers,
		HasGoogleAPIKey:       s.GoogleAPIKeyEncrypted != "",
		HasMineruToken:        s.MineruTokenEncrypted != "",
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}
