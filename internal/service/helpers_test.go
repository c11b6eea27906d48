package service

import (
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/pkg/security"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a fresh in-memory database per test. Pinned to a single
// connection, every pool connection would otherwise get its own empty
// :memory: schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(model.User{}, model.UserSettings{}, model.VerificationCode{})
	require.NoError(t, err)

	return db
}

func setTokenConfig(t *testing.T) {
	t.Helper()

	viper.Set("jwt.secret", "test-secret-do-not-use")
	viper.Set("jwt.access_ttl", "15m")
	viper.Set("jwt.refresh_ttl", "168h")
	viper.Set("jwt.refresh_ttl_remember", "720h")
}

func setSystemDefaults(t *testing.T) {
	t.Helper()

	viper.Set("ai.google_api_key", "")
	viper.Set("ai.google_api_base", "https://generativelanguage.googleapis.com")
	viper.Set("ai.mineru_token", "")
	viper.Set("ai.mineru_api_base", "https://mineru.net")
	viper.Set("ai.image_caption_model", "gemini-2.5-flash")
	viper.Set("ai.max_description_workers", 5)
	viper.Set("ai.max_image_workers", 8)
}

func newTestAccounts(t *testing.T, db *gorm.DB) *AccountService {
	t.Helper()

	return NewAccountService(db, security.NewArgon())
}

func registerTestUser(t *testing.T, accounts *AccountService, username, email string) *model.User {
	t.Helper()

	user, err := accounts.Register(username, email, "password123")
	require.NoError(t, err)

	return user
}

func newTestConfigService(t *testing.T, db *gorm.DB) *ConfigService {
	t.Helper()

	key, err := security.GenerateEncryptionKey()
	require.NoError(t, err)

	box, err := security.NewSecretBox(key)
	require.NoError(t, err)

	return NewConfigService(db, box)
}
