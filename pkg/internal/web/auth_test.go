package web

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedAuthToken(t *testing.T, secret string, claims AuthClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseAuthToken(t *testing.T) {
	viper.Set("security.auth_secret", "test-secret")
	defer viper.Set("security.auth_secret", "")

	token := signedAuthToken(t, "test-secret", AuthClaims{
		Nick:   "Joan",
		Avatar: "https://cdn.example.com/joan.png",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "joan",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ParseAuthToken(token)
	require.NoError(t, err)
	assert.Equal(t, "joan", claims.Subject)
	assert.Equal(t, "Joan", claims.Nick)
	assert.Equal(t, "https://cdn.example.com/joan.png", claims.Avatar)
}

func TestParseAuthTokenRejectsBadTokens(t *testing.T) {
	viper.Set("security.auth_secret", "test-secret")
	defer viper.Set("security.auth_secret", "")

	_, err := ParseAuthToken("garbage")
	assert.Error(t, err)

	_, err = ParseAuthToken(signedAuthToken(t, "wrong-secret", AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "joan"},
	}))
	assert.Error(t, err)

	expired := signedAuthToken(t, "test-secret", AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "joan",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err = ParseAuthToken(expired)
	assert.Error(t, err)
}

func TestParseAuthTokenRejectsUnsignedTokens(t *testing.T) {
	viper.Set("security.auth_secret", "test-secret")
	defer viper.Set("security.auth_secret", "")

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "joan"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAuthToken(unsigned)
	assert.Error(t, err)
}
