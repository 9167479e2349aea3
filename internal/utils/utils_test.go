package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, expiresAt, err := GenerateAccessToken(3, "traveler@example.com", "secret")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), expiresAt, time.Minute)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.Equal(t, "traveler@example.com", claims.Email)

	_, err = ValidateToken(token, "another-secret")
	assert.Error(t, err)
}

func TestValidateToken_RejectsExpiredAndUnsigned(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ValidateToken(signed, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken(unsigned, "secret")
	assert.Error(t, err)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ValidateToken(anonymous, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidators(t *testing.T) {
	assert.True(t, IsValidEmail("a.b+c@example.co"))
	assert.False(t, IsValidEmail("missing-at.example.com"))

	assert.True(t, IsValidPassword("12345678"))
	assert.False(t, IsValidPassword("1234567"))

	assert.True(t, IsValidNickname("여행자"))
	assert.False(t, IsValidNickname("x"))

	assert.True(t, IsValidRating(0))
	assert.True(t, IsValidRating(5))
	assert.False(t, IsValidRating(5.5))
	assert.False(t, IsValidRating(-1))

	assert.Equal(t, "hello", SanitizeString("  hello \n"))
}
