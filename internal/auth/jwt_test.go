package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(userID, "ana@dealdesk.io", "Ana", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, "ana@dealdesk.io", claims.Email)
	require.Equal(t, "Ana", claims.DisplayName)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(uuid.New(), "ana@dealdesk.io", "Ana", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := GenerateToken(uuid.New(), "ana@dealdesk.io", "Ana", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret")
	require.Error(t, err)
}
