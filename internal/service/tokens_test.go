package service

import (
	"deckforge/auth-api/internal/model"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenUser() *model.User {
	return &model.User{
		ID:       "user-1",
		Username: "alice",
		Role:     model.RoleUser,
		IsActive: true,
	}
}

func TestIssueAndParse_Success(t *testing.T) {
	setTokenConfig(t)
	tokens := NewTokenService()

	pair, err := tokens.Issue(testTokenUser(), false)
	require.NoError(t, err)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.Equal(t, "user-1", claims.Subject)

	refreshClaims, err := tokens.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
}

func TestParse_TypeConfusionRejected(t *testing.T) {
	setTokenConfig(t)
	tokens := NewTokenService()

	pair, err := tokens.Issue(testTokenUser(), false)
	require.NoError(t, err)

	// A refresh token must never pass as an access token, it lives far
	// longer and leaks out more easily
	_, err = tokens.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenType)

	_, err = tokens.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenType)
}

func TestParse_Garbage(t *testing.T) {
	setTokenConfig(t)
	tokens := NewTokenService()

	for _, tok := range []string{"", "not.a.jwt", "a.b.c"} {
		_, err := tokens.ParseAccess(tok)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token: %q", tok)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	setTokenConfig(t)
	tokens := NewTokenService()

	pair, err := tokens.Issue(testTokenUser(), false)
	require.NoError(t, err)

	viper.Set("jwt.secret", "a-different-secret")
	other := NewTokenService()

	_, err = other.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParse_Expired(t *testing.T) {
	setTokenConfig(t)
	viper.Set("jwt.access_ttl", "-1m")
	tokens := NewTokenService()

	pair, err := tokens.Issue(testTokenUser(), false)
	require.NoError(t, err)

	_, err = tokens.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssue_RememberMeExtendsRefresh(t *testing.T) {
	setTokenConfig(t)
	tokens := NewTokenService()

	short, err := tokens.Issue(testTokenUser(), false)
	require.NoError(t, err)

	long, err := tokens.Issue(testTokenUser(), true)
	require.NoError(t, err)

	shortClaims, err := tokens.ParseRefresh(short.RefreshToken)
	require.NoError(t, err)

	longClaims, err := tokens.ParseRefresh(long.RefreshToken)
	require.NoError(t, err)

	week := 7 * 24 * time.Hour
	diff := longClaims.ExpiresAt.Sub(shortClaims.ExpiresAt.Time)
	assert.InDelta(t, (30*24*time.Hour - week).Seconds(), diff.Seconds(), 5)
}

func TestIssueAccess_IsAnAccessToken(t *testing.T) {
	setTokenConfig(t)
	tokens := NewTokenService()

	access, err := tokens.IssueAccess(testTokenUser())
	require.NoError(t, err)

	claims, err := tokens.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	_, err = tokens.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrTokenType)
}
