package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret")
	userID := uuid.New()

	token, err := svc.GenerateToken(userID, "sess-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret")
	userID := uuid.New()

	expired, err := svc.GenerateToken(userID, "s", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign, err := NewJWTService("other").GenerateToken(userID, "s", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	noSession, err := svc.GenerateToken(userID, "", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.ValidateToken(noSession)
	assert.Error(t, err)
}
