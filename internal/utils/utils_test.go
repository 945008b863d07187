package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.True(t, PasswordMatches(hash, "hunter2"))
	assert.False(t, PasswordMatches(hash, "hunter3"))
}

func TestPasswordHashClampsBogusCost(t *testing.T) {
	// A cost below bcrypt's minimum would otherwise error out; the
	// clamp keeps registration working on a bad BCRYPT_COST.
	hash, err := HashPassword("hunter2", -3)
	require.NoError(t, err)
	assert.True(t, PasswordMatches(hash, "hunter2"))
}

func TestAccessTokenClaims(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "alice", true, 15)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "alice", claims["nethz"])
	assert.Equal(t, true, claims["admin"])
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "bob", false, 15)
	require.NoError(t, err)

	_, err = jwt.Parse(tok.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err)
}
