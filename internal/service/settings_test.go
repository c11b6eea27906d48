package service

import (
	"deckforge/auth-api/internal/model"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestEnsureSettings_CreatesOnce(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	user := registerTestUser(t, newTestAccounts(t, db), "alice", "alice@example.com")

	first, err := cfg.EnsureSettings(user.ID)
	require.NoError(t, err)

	second, err := cfg.EnsureSettings(user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestEffectiveConfig_SystemDefaults(t *testing.T) {
	setSystemDefaults(t)

	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	settings := &model.UserSettings{UserID: "u1"}
	require.NoError(t, db.Create(settings).Error)

	eff := cfg.EffectiveConfig(settings)
	require.Len(t, eff, len(SettingKeys))

	for _, key := range SettingKeys {
		assert.Equal(t, "system", eff[key].Source, "key %s", key)
	}

	assert.Equal(t, "https://generativelanguage.googleapis.com", eff["google_api_base"].Value)
	assert.Equal(t, "https://mineru.net", eff["mineru_api_base"].Value)
	assert.Equal(t, "gemini-2.5-flash", eff["image_caption_model"].Value)
	assert.Equal(t, 5, eff["max_description_workers"].Value)
	assert.Equal(t, 8, eff["max_image_workers"].Value)

	require.NotNil(t, eff["google_api_key"].IsSet)
	assert.False(t, *eff["google_api_key"].IsSet, "no user key and no system key")
	assert.Nil(t, eff["google_api_key"].Value, "secret values never appear")
}

func TestUpdateSettings_SecretsStoredEncrypted(t *testing.T) {
	setSystemDefaults(t)

	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	user := registerTestUser(t, newTestAccounts(t, db), "alice", "alice@example.com")
	settings, err := cfg.EnsureSettings(user.ID)
	require.NoError(t, err)

	err = cfg.UpdateSettings(settings, SettingsUpdate{GoogleAPIKey: ptr("sk-plain-key")})
	require.NoError(t, err)

	var row model.UserSettings
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&row).Error)
	assert.NotEmpty(t, row.GoogleAPIKeyEncrypted)
	assert.NotContains(t, row.GoogleAPIKeyEncrypted, "sk-plain-key")

	assert.Equal(t, "sk-plain-key", cfg.GoogleAPIKey(&row))

	eff := cfg.EffectiveConfig(&row)
	assert.Equal(t, "user", eff["google_api_key"].Source)
	require.NotNil(t, eff["google_api_key"].IsSet)
	assert.True(t, *eff["google_api_key"].IsSet)
	assert.Nil(t, eff["google_api_key"].Value)

	snap := row.Snapshot()
	assert.True(t, snap.HasGoogleAPIKey)
	assert.False(t, snap.HasMineruToken)
}

func TestUpdateSettings_EmptyStringClears(t *testing.T) {
	setSystemDefaults(t)

	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	user := registerTestUser(t, newTestAccounts(t, db), "alice", "alice@example.com")
	settings, err := cfg.EnsureSettings(user.ID)
	require.NoError(t, err)

	require.NoError(t, cfg.UpdateSettings(settings, SettingsUpdate{
		MineruToken:   ptr("tok-123"),
		GoogleAPIBase: ptr("https://proxy.example.com"),
	}))

	require.NoError(t, cfg.UpdateSettings(settings, SettingsUpdate{
		MineruToken:   ptr(""),
		GoogleAPIBase: ptr(""),
	}))

	var row model.UserSettings
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&row).Error)
	assert.Empty(t, row.MineruTokenEncrypted)
	assert.Empty(t, row.GoogleAPIBase)

	eff := cfg.EffectiveConfig(&row)
	assert.Equal(t, "system", eff["mineru_token"].Source)
	assert.Equal(t, "https://generativelanguage.googleapis.com", eff["google_api_base"].Value)
}

func TestUpdateSettings_WorkerCoercion(t *testing.T) {
	setSystemDefaults(t)

	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	user := registerTestUser(t, newTestAccounts(t, db), "alice", "alice@example.com")
	settings, err := cfg.EnsureSettings(user.ID)
	require.NoError(t, err)

	cases := []struct {
		name  string
		value float64
		want  *int
	}{
		{"valid", 10, ptr(10)},
		{"lower bound", 1, ptr(1)},
		{"upper bound", 20, ptr(20)},
		{"zero clears", 0, nil},
		{"too big clears", 21, nil},
		{"negative clears", -3, nil},
		{"fractional clears", 2.5, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := cfg.UpdateSettings(settings, SettingsUpdate{MaxDescriptionWorkers: &tc.value})
			require.NoError(t, err)

			var row model.UserSettings
			require.NoError(t, db.Where("user_id = ?", user.ID).First(&row).Error)

			if tc.want == nil {
				assert.Nil(t, row.MaxDescriptionWorkers)
				assert.Equal(t, 5, cfg.MaxDescriptionWorkers(&row), "cleared values resolve to the system default")
			} else {
				require.NotNil(t, row.MaxDescriptionWorkers)
				assert.Equal(t, *tc.want, *row.MaxDescriptionWorkers)
				assert.Equal(t, *tc.want, cfg.MaxDescriptionWorkers(&row))
			}
		})
	}
}

func TestResetSetting_EveryKey(t *testing.T) {
	setSystemDefaults(t)

	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	user := registerTestUser(t, newTestAccounts(t, db), "alice", "alice@example.com")
	settings, err := cfg.EnsureSettings(user.ID)
	require.NoError(t, err)

	require.NoError(t, cfg.UpdateSettings(settings, SettingsUpdate{
		GoogleAPIKey:          ptr("key"),
		GoogleAPIBase:         ptr("https://g.example.com"),
		MineruToken:           ptr("tok"),
		MineruAPIBase:         ptr("https://m.example.com"),
		ImageCaptionModel:     ptr("custom-model"),
		MaxDescriptionWorkers: ptr(3.0),
		MaxImageWorkers:       ptr(4.0),
	}))

	for _, key := range SettingKeys {
		require.NoError(t, cfg.ResetSetting(settings, key), "key %s", key)
	}

	var row model.UserSettings
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&row).Error)

	eff := cfg.EffectiveConfig(&row)
	for _, key := range SettingKeys {
		assert.Equal(t, "system", eff[key].Source, "key %s must be back on the default", key)
	}
}

func TestResetSetting_SingleKeyLeavesOthers(t *testing.T) {
	setSystemDefaults(t)

	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	user := registerTestUser(t, newTestAccounts(t, db), "alice", "alice@example.com")
	settings, err := cfg.EnsureSettings(user.ID)
	require.NoError(t, err)

	require.NoError(t, cfg.UpdateSettings(settings, SettingsUpdate{
		GoogleAPIKey:  ptr("key"),
		GoogleAPIBase: ptr("https://g.example.com"),
	}))

	require.NoError(t, cfg.ResetSetting(settings, "google_api_key"))

	eff := cfg.EffectiveConfig(settings)
	assert.Equal(t, "system", eff["google_api_key"].Source)
	assert.Equal(t, "user", eff["google_api_base"].Source)
	assert.Equal(t, "https://g.example.com", eff["google_api_base"].Value)
}

func TestResetSetting_UnknownKey(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	err := cfg.ResetSetting(&model.UserSettings{}, "not_a_setting")
	assert.ErrorIs(t, err, ErrUnknownSettingKey)
}

func TestGoogleAPIKey_BrokenCiphertextFallsBack(t *testing.T) {
	setSystemDefaults(t)
	viper.Set("ai.google_api_key", "system-key")
	defer viper.Set("ai.google_api_key", "")

	db := newTestDB(t)
	cfg := newTestConfigService(t, db)

	settings := &model.UserSettings{
		UserID:                "u1",
		GoogleAPIKeyEncrypted: "AAAA not decryptable AAAA",
	}

	assert.Equal(t, "system-key", cfg.GoogleAPIKey(settings))

	// The override is stored, so the source still says user even though
	// the value fell back
	eff := cfg.EffectiveConfig(settings)
	assert.Equal(t, "user", eff["google_api_key"].Source)
	require.NotNil(t, eff["google_api_key"].IsSet)
	assert.True(t, *eff["google_api_key"].IsSet, "the system fallback is usable")
}

func TestResolvers_NilSettings(t *testing.T) {
	setSystemDefaults(t)

	cfg := newTestConfigService(t, newTestDB(t))

	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.GoogleAPIBase(nil))
	assert.Equal(t, "https://mineru.net", cfg.MineruAPIBase(nil))
	assert.Equal(t, "gemini-2.5-flash", cfg.ImageCaptionModel(nil))
	assert.Equal(t, 5, cfg.MaxDescriptionWorkers(nil))
	assert.Equal(t, 8, cfg.MaxImageWorkers(nil))
	assert.Equal(t, "", cfg.GoogleAPIKey(nil))
}
