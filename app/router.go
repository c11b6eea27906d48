package app

import (
	"deckforge/auth-api/app/auth"
	"deckforge/auth-api/app/root"
	"deckforge/auth-api/app/user"
	"deckforge/auth-api/db"
	"deckforge/auth-api/internal"
	"deckforge/auth-api/internal/service"
	"deckforge/auth-api/pkg/middleware"
	"deckforge/auth-api/pkg/security"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

func NewRouter() (*gin.Engine, error) {
	makeLogger()

	d := &internal.Deps{}

	conn, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = conn

	if viper.GetBool("security.encryption_key_ephemeral") {
		zap.L().Warn("No encryption key configured, generated one for this process. Secrets stored now will not decrypt after a restart")
	}

	box, err := security.NewSecretBox(viper.GetString("security.encryption_key"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret cipher, %w", err)
	}

	d.Argon = security.NewArgon()
	d.Box = box
	d.Tokens = service.NewTokenService()
	d.Codes = service.NewCodeService(conn)
	d.Accounts = service.NewAccountService(conn, d.Argon)
	d.OAuth = service.NewOAuthService(conn)
	d.Config = service.NewConfigService(conn, box)
	d.Mailer = service.NewSMTPMailer()

	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors"),
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	rateLimit := viper.GetInt("security.rate_limit")

	jwt := middleware.RequireAuth(d.Tokens, conn)
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
		CleanupInterval:   time.Second,
	})

	providers := auth.Providers()

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/validate		-> Validates an access token
		m.GET("/validate", jwt, root.Validate)
	}

	a := m.Group("/auth", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/auth/register	-> Registers a new user, consumes a register code
		a.POST("/register", func(c *gin.Context) { auth.Register(c, d) })

		// POST /api/auth/login 	-> Logs in a user and returns a token pair
		a.POST("/login", func(c *gin.Context) { auth.Login(c, d) })

		// POST /api/auth/logout	-> Acknowledges a logout
		a.POST("/logout", jwt, auth.Logout)

		// POST /api/auth/refresh	-> Trades a refresh token for a new access token
		a.POST("/refresh", func(c *gin.Context) { auth.Refresh(c, d) })

		// GET /api/auth/me		-> Returns the authenticated user
		a.GET("/me", jwt, auth.Me)

		// POST /api/auth/send-code	-> Mails a verification code
		a.POST("/send-code", func(c *gin.Context) { auth.SendCode(c, d) })

		// POST /api/auth/verify-code	-> Pre-validates a code without consuming it
		a.POST("/verify-code", func(c *gin.Context) { auth.VerifyCode(c, d) })

		// POST /api/auth/reset-password -> Resets a password, consumes a reset code
		a.POST("/reset-password", func(c *gin.Context) { auth.ResetPassword(c, d) })

		// GET /api/auth/providers	-> Lists the configured OAuth providers
		a.GET("/providers", cacheFor(60), auth.ListProviders(providers))

		// GET /api/auth/:provider	-> Starts an OAuth login
		a.GET("/:provider", func(c *gin.Context) { auth.OAuthStart(c, providers) })

		// GET /api/auth/:provider/callback -> Finishes an OAuth login
		a.GET("/:provider/callback", func(c *gin.Context) { auth.OAuthCallback(c, d, providers) })
	}

	u := m.Group("/users", jwt, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/users/profile	-> Returns the current user's profile
		u.GET("/profile", user.ProfileFetch)

		// PUT /api/users/profile	-> Updates username or avatar
		u.PUT("/profile", func(c *gin.Context) { user.ProfileUpdate(c, d) })

		// PUT /api/users/password	-> Changes the password
		u.PUT("/password", func(c *gin.Context) { user.PasswordChange(c, d) })

		// GET /api/users/settings	-> Returns settings and effective config
		u.GET("/settings", func(c *gin.Context) { user.SettingsFetch(c, d) })

		// PUT /api/users/settings	-> Updates settings
		u.PUT("/settings", func(c *gin.Context) { user.SettingsUpdate(c, d) })

		// DELETE /api/users/settings/:key -> Resets one setting to the system default
		u.DELETE("/settings/:key", func(c *gin.Context) { user.SettingsReset(c, d) })
	}

	// Codes expire within minutes but rows stick around for the issue
	// cooldown, sweep hourly
	go service.CodeCleanup(time.Hour, conn)

	return router, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true
	cfg.Level = logLevel()

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func logLevel() zap.AtomicLevel {
	switch viper.GetString("app.log_level") {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	case "fatal":
		return zap.NewAtomicLevelAt(zapcore.FatalLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
