package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	s, err := NewSigner("secret", "HS256", time.Hour)
	require.NoError(t, err)

	token, exp, err := s.GenerateToken("user-1", "a@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestValidateRejectsExpired(t *testing.T) {
	s, err := NewSigner("secret", "HS256", time.Minute)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := s.GenerateToken("user-1", "a@x.com")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsForeignSecretAndAlgorithm(t *testing.T) {
	issuer, err := NewSigner("secret", "HS512", time.Hour)
	require.NoError(t, err)
	token, _, err := issuer.GenerateToken("user-1", "a@x.com")
	require.NoError(t, err)

	otherSecret, err := NewSigner("other", "HS512", time.Hour)
	require.NoError(t, err)
	_, err = otherSecret.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAlg, err := NewSigner("secret", "HS256", time.Hour)
	require.NoError(t, err)
	_, err = otherAlg.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = otherAlg.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerRejectsUnknownAlgorithm(t *testing.T) {
	_, err := NewSigner("secret", "RS256", time.Hour)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
