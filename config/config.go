// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	genKey            = pflag.Bool("gen-key", false, "Prints a fresh secret encryption key and exits")
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"sqlite", "postgres"}
)

func genSecret(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.cors", "host_cors")
	v.BindEnv("host.public_url", "host_public_url")

	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("security.encryption_key", "security_encryption_key")
	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("storage.driver", "storage_driver")
	v.BindEnv("storage.path", "storage_path")
	v.BindEnv("storage.dsn", "storage_dsn")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.sender_address", "mail_sender_address")
	v.BindEnv("mail.password", "mail_password")

	v.BindEnv("oauth.redirect_base", "oauth_redirect_base")
	v.BindEnv("oauth.google.client_id", "oauth_google_client_id")
	v.BindEnv("oauth.google.client_secret", "oauth_google_client_secret")
	v.BindEnv("oauth.github.client_id", "oauth_github_client_id")
	v.BindEnv("oauth.github.client_secret", "oauth_github_client_secret")

	v.BindEnv("ai.google_api_key", "google_api_key")
	v.BindEnv("ai.google_api_base", "google_api_base")
	v.BindEnv("ai.mineru_token", "mineru_token")
	v.BindEnv("ai.mineru_api_base", "mineru_api_base")
	v.BindEnv("ai.image_caption_model", "image_caption_model")
	v.BindEnv("ai.max_description_workers", "max_description_workers")
	v.BindEnv("ai.max_image_workers", "max_image_workers")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.public_url", "http://localhost:8080")

	v.SetDefault("oauth.redirect_base", "http://localhost:5173")

	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("security.rate_limit", 20)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "deckforge.db")

	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("jwt.refresh_ttl_remember", "720h")

	v.SetDefault("mail.port", 587)

	v.SetDefault("ai.google_api_base", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.mineru_api_base", "https://mineru.net")
	v.SetDefault("ai.image_caption_model", "gemini-2.5-flash")
	v.SetDefault("ai.max_description_workers", 5)
	v.SetDefault("ai.max_image_workers", 8)

	if *genKey {
		fmt.Println(genSecret(32))
		os.Exit(0)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret(64) + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	// The encryption key guards stored user secrets. A missing key still
	// lets the app run, but everything encrypted during this run becomes
	// unreadable after a restart. The router logs a warning once the
	// logger exists
	if v.GetString("security.encryption_key") == "" {
		v.Set("security.encryption_key", genSecret(32))
		v.Set("security.encryption_key_ephemeral", true)
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	switch v.GetString("storage.driver") {
	case "sqlite":
		if v.GetString("storage.path") == "" {
			return errors.New("storage.path can't be empty")
		}
	case "postgres":
		if v.GetString("storage.dsn") == "" {
			return errors.New("storage.dsn can't be empty")
		}
	default:
		return fmt.Errorf("invalid storage driver provided, must be one of %v", validStorageTypes)
	}

	if v.GetString("mail.host") == "" || v.GetString("mail.sender_address") == "" {
		fmt.Println("[WARNING]: Mail settings are incomplete. Verification codes can't be sent until mail.host and mail.sender_address are set")
	}

	if v.GetInt("ai.max_description_workers") <= 0 || v.GetInt("ai.max_image_workers") <= 0 {
		return errors.New("worker counts must be bigger than 0")
	}

	return nil
}
