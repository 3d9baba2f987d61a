package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Minute, time.Hour)
	memberID := uuid.New()

	token, err := svc.GenerateAccessToken(memberID, "mira@example.com", "mira")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, memberID, claims.MemberID)
	assert.Equal(t, "mira@example.com", claims.Email)
	assert.Equal(t, "mira", claims.Username)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	svc := NewService("test-secret", time.Minute, time.Hour)

	token, err := svc.GenerateAccessToken(uuid.New(), "mira@example.com", "mira")
	require.NoError(t, err)

	other := NewService("different-secret", time.Minute, time.Hour)
	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestAccessTokenExpired(t *testing.T) {
	svc := NewService("test-secret", -time.Minute, time.Hour)

	token, err := svc.GenerateAccessToken(uuid.New(), "mira@example.com", "mira")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Minute, time.Hour)
	memberID := uuid.New()

	token, err := svc.GenerateRefreshToken(memberID)
	require.NoError(t, err)

	parsed, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, memberID, parsed)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	svc := NewService("test-secret", time.Minute, time.Hour)

	token, err := svc.GenerateRefreshToken(uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)
}
