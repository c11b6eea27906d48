// Package model defines database models
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID       string `gorm:"primaryKey;size:36"`
	Username string `gorm:"uniqueIndex;size:80;not null"`
	Email    string `gorm:"uniqueIndex;size:120;not null"`

	// Empty for accounts created through an OAuth provider that never
	// set a password
	PasswordHash string `gorm:"size:256"`

	AvatarURL string `gorm:"size:500"`
	IsActive  bool   `gorm:"not null;default:true"`
	Role      string `gorm:"size:20;not null;default:user"`

	// Identity assigned by the OAuth provider. NULL for password-only
	// accounts so the composite unique index only bites when both are set
	OAuthProvider *string `gorm:"size:20;uniqueIndex:idx_oauth_identity"`
	OAuthID       *string `gorm:"size:100;uniqueIndex:idx_oauth_identity"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Settings *UserSettings `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Provider returns the linked OAuth provider name, or "" if none is linked.
func (u *User) Provider() string {
	if u.OAuthProvider == nil {
		return ""
	}
	return *u.OAuthProvider
}

// PublicView is what anyone may see about a user. SelfView adds the fields
// only the account owner gets back. Encrypted settings values appear in
// neither.
type PublicView struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Role          string    `json:"role"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type SelfView struct {
	PublicView
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) Public() PublicView {
	return PublicView{
		ID:            u.ID,
		Username:      u.Username,
		AvatarURL:     u.AvatarURL,
		Role:          u.Role,
		OAuthProvider: u.Provider(),
		CreatedAt:     u.CreatedAt,
	}
}

func (u *User) Self() SelfView {
	return SelfView{
		PublicView: u.Public(),
		Email:      u.Email,
		IsActive:   u.IsActive,
		UpdatedAt:  u.UpdatedAt,
	}
}
