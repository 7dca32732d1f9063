package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	s, err := NewSigner("secret")
	require.NoError(t, err)

	token, expires, err := s.Sign("sid-1", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.True(t, claims.Admin)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	s, err := NewSigner("secret")
	require.NoError(t, err)
	other, err := NewSigner("other")
	require.NoError(t, err)

	token, _, err := other.Sign("sid", time.Hour)
	require.NoError(t, err)
	_, err = s.Parse(token)
	assert.Error(t, err)

	expired, _, err := s.Sign("sid", -time.Minute)
	require.NoError(t, err)
	_, err = s.Parse(expired)
	assert.ErrorIs(t, err, jwtlib.ErrTokenExpired)

	_, err = s.Parse("not-a-token")
	assert.Error(t, err)
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}
