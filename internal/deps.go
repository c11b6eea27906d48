package internal

import (
	"deckforge/auth-api/internal/service"
	"deckforge/auth-api/pkg/security"

	"gorm.io/gorm"
)

// Deps bundles everything handlers need. Built once at startup and passed
// into every handler explicitly
type Deps struct {
	DB       *gorm.DB
	Argon    *security.ArgonHash
	Box      *security.SecretBox
	Tokens   *service.TokenService
	Codes    *service.CodeService
	Accounts *service.AccountService
	OAuth    *service.OAuthService
	Config   *service.ConfigService
	Mailer   service.Mailer
}
