package auth

import (
	"context"
	"deckforge/auth-api/internal"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// identity is what a provider tells us about the person logging in
type identity struct {
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

type oauthProvider struct {
	config   *oauth2.Config
	userInfo func(ctx context.Context, client *http.Client) (*identity, error)
}

// Providers builds the configured OAuth providers from config. A provider
// missing its client credentials just isn't offered
func Providers() map[string]*oauthProvider {
	providers := map[string]*oauthProvider{}
	base := viper.GetString("host.public_url")

	if id := viper.GetString("oauth.google.client_id"); id != "" {
		providers["google"] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: viper.GetString("oauth.google.client_secret"),
				Endpoint:     google.Endpoint,
				RedirectURL:  base + "/api/auth/google/callback",
				Scopes:       []string{"openid", "email", "profile"},
			},
			userInfo: googleUserInfo,
		}
	}

	if id := viper.GetString("oauth.github.client_id"); id != "" {
		providers["github"] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: viper.GetString("oauth.github.client_secret"),
				Endpoint:     github.Endpoint,
				RedirectURL:  base + "/api/auth/github/callback",
				Scopes:       []string{"user:email"},
			},
			userInfo: githubUserInfo,
		}
	}

	return providers
}

// OAuthStart redirects the browser to the provider's consent page. A
// random state lands in a short-lived cookie and must come back on the
// callback
func OAuthStart(c *gin.Context, providers map[string]*oauthProvider) {
	requestID := c.MustGet("requestID").(string)

	p, ok := providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":     "This OAuth provider is not configured",
			"requestID": requestID,
		})
		return
	}

	state, err := gonanoid.New()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate OAuth state", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.SetCookie("oauth_state", state, 600, "/", "", viper.GetBool("host.ssl.enabled"), true)
	c.Redirect(http.StatusFound, p.config.AuthCodeURL(state))
}

// OAuthCallback finishes the flow: state check, code exchange, user info
// fetch, then account resolution. The browser ends up back on the
// frontend with a token pair in the query, or on the login page with an
// error
func OAuthCallback(c *gin.Context, d *internal.Deps, providers map[string]*oauthProvider) {
	requestID := c.MustGet("requestID").(string)

	p, ok := providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":     "This OAuth provider is not configured",
			"requestID": requestID,
		})
		return
	}

	state, err := c.Cookie("oauth_state")
	if err != nil || state == "" || state != c.Query("state") {
		redirectLoginError(c, "OAuth state mismatch")
		return
	}

	c.SetCookie("oauth_state", "", -1, "/", "", viper.GetBool("host.ssl.enabled"), true)

	code := c.Query("code")
	if code == "" {
		redirectLoginError(c, "OAuth failed")
		return
	}

	ctx := c.Request.Context()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		zap.L().Error("OAuth code exchange failed", zap.Error(err), zap.String("requestID", requestID))
		redirectLoginError(c, "OAuth failed")
		return
	}

	info, err := p.userInfo(ctx, p.config.Client(ctx, token))
	if err != nil {
		zap.L().Error("Failed to fetch OAuth user info", zap.Error(err), zap.String("requestID", requestID))
		redirectLoginError(c, "OAuth failed")
		return
	}

	if info.Email == "" {
		redirectLoginError(c, "Email not available")
		return
	}

	user, err := d.OAuth.Resolve(c.Param("provider"), info.ExternalID, info.Email, info.DisplayName, info.AvatarURL)
	if err != nil {
		zap.L().Error("Failed to resolve OAuth identity", zap.Error(err), zap.String("requestID", requestID))
		redirectLoginError(c, "OAuth failed")
		return
	}

	pair, err := d.Tokens.Issue(user, true)
	if err != nil {
		zap.L().Error("Failed to issue tokens", zap.Error(err), zap.String("requestID", requestID))
		redirectLoginError(c, "OAuth failed")
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf(
		"%s/auth/callback?access_token=%s&refresh_token=%s",
		viper.GetString("oauth.redirect_base"),
		url.QueryEscape(pair.AccessToken),
		url.QueryEscape(pair.RefreshToken),
	))
}

func redirectLoginError(c *gin.Context, msg string) {
	c.Redirect(http.StatusFound, fmt.Sprintf(
		"%s/login?error=%s",
		viper.GetString("oauth.redirect_base"),
		url.QueryEscape(msg),
	))
}

func googleUserInfo(ctx context.Context, client *http.Client) (*identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://openidconnect.googleapis.com/v1/userinfo", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var data struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	return &identity{
		ExternalID:  data.Sub,
		Email:       data.Email,
		DisplayName: data.Name,
		AvatarURL:   data.Picture,
	}, nil
}

func githubUserInfo(ctx context.Context, client *http.Client) (*identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user endpoint returned %d", resp.StatusCode)
	}

	var data struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	email := data.Email
	if email == "" {
		email, err = githubPrimaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
	}

	display := data.Login
	if display == "" {
		display = data.Name
	}

	return &identity{
		ExternalID:  strconv.FormatInt(data.ID, 10),
		Email:       email,
		DisplayName: display,
		AvatarURL:   data.AvatarURL,
	}, nil
}

// githubPrimaryEmail covers accounts whose email is private on the
// profile, the emails endpoint still lists it for the user:email scope
func githubPrimaryEmail(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user/emails", nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("emails endpoint returned %d", resp.StatusCode)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}

	return "", nil
}
