package user

import (
	"deckforge/auth-api/internal"
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsFetch returns the stored overrides plus the resolved effective
// values. Secrets only ever show up as is_set booleans
func SettingsFetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("currentUser").(*model.User)

	settings, err := d.Config.EnsureSettings(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load settings", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings":         settings.Snapshot(),
		"effective_config": d.Config.EffectiveConfig(settings),
	})
}

func SettingsUpdate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("currentUser").(*model.User)

	var data service.SettingsUpdate
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	settings, err := d.Config.EnsureSettings(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load settings", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := d.Config.UpdateSettings(settings, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to update settings",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update settings", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Settings updated",
		"settings":         settings.Snapshot(),
		"effective_config": d.Config.EffectiveConfig(settings),
	})
}

// SettingsReset clears a single override so the system default applies
func SettingsReset(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("currentUser").(*model.User)
	key := c.Param("key")

	settings, err := d.Config.EnsureSettings(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load settings", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := d.Config.ResetSetting(settings, key); err != nil {
		if errors.Is(err, service.ErrUnknownSettingKey) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Unknown setting key: " + key,
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to reset setting",
			"requestID": requestID,
		})

		zap.L().Error("Failed to reset setting", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Setting " + key + " reset to system default",
		"settings":         settings.Snapshot(),
		"effective_config": d.Config.EffectiveConfig(settings),
	})
}
