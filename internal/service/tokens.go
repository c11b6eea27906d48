package service

import (
	"deckforge/auth-api/internal/model"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims embeds the registered JWT claims and adds an identity snapshot.
// Username and role reflect the account at issue time, the access token's
// short lifetime bounds how stale they can get
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"type"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type TokenService struct {
	secret             []byte
	accessTTL          time.Duration
	refreshTTL         time.Duration
	refreshTTLRemember time.Duration
}

func NewTokenService() *TokenService {
	return &TokenService{
		secret:             []byte(viper.GetString("jwt.secret")),
		accessTTL:          viper.GetDuration("jwt.access_ttl"),
		refreshTTL:         viper.GetDuration("jwt.refresh_ttl"),
		refreshTTLRemember: viper.GetDuration("jwt.refresh_ttl_remember"),
	}
}

// Issue creates an access/refresh token pair for a user. The refresh token
// lives 7 days, or 30 with rememberMe
func (s *TokenService) Issue(u *model.User, rememberMe bool) (*TokenPair, error) {
	access, err := s.sign(u, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token, %w", err)
	}

	refreshTTL := s.refreshTTL
	if rememberMe {
		refreshTTL = s.refreshTTLRemember
	}

	refresh, err := s.sign(u, tokenTypeRefresh, refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token, %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}

// IssueAccess creates just a new access token, used by the refresh flow
func (s *TokenService) IssueAccess(u *model.User) (string, error) {
	return s.sign(u, tokenTypeAccess, s.accessTTL)
}

// ParseAccess validates an access token and returns its claims
func (s *TokenService) ParseAccess(token string) (*Claims, error) {
	return s.parse(token, tokenTypeAccess)
}

// ParseRefresh validates a refresh token and returns its claims. Callers
// must still re-check the account exists and is active
func (s *TokenService) ParseRefresh(token string) (*Claims, error) {
	return s.parse(token, tokenTypeRefresh)
}

func (s *TokenService) sign(u *model.User, typ string, ttl time.Duration) (string, error) {
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		Type:     typ,
	})

	return t.SignedString(s.secret)
}

func (s *TokenService) parse(token, typ string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Type != typ {
		return nil, ErrTokenType
	}

	return claims, nil
}
