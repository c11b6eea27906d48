// Package db opens the database connection and keeps the schema migrated
package db

import (
	"deckforge/auth-api/internal/model"
	"deckforge/auth-api/pkg/util"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch viper.GetString("storage.driver") {
	case "postgres":
		dialector = postgres.Open(viper.GetString("storage.dsn"))
	default:
		path := viper.GetString("storage.path")

		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() {
			if _, err := os.Stat(path); err != nil {
				if err == os.ErrNotExist {
					return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", path)
				}
			}
		}

		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	err = db.AutoMigrate(model.User{}, model.UserSettings{}, model.VerificationCode{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
