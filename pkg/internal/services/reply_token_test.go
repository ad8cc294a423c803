package services

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyTokenRoundTrip(t *testing.T) {
	viper.Set("security.reply_token_secret", "test-secret")
	defer viper.Set("security.reply_token_secret", "")

	token, err := CreateReplyToken(42, 7)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseReplyToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.MessageID)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "chorus", claims.Issuer)
}

func TestParseReplyTokenRejectsTampering(t *testing.T) {
	viper.Set("security.reply_token_secret", "test-secret")
	defer viper.Set("security.reply_token_secret", "")

	token, err := CreateReplyToken(42, 7)
	require.NoError(t, err)

	_, err = ParseReplyToken(token + "x")
	assert.Error(t, err)

	_, err = ParseReplyToken("not-even-a-token")
	assert.Error(t, err)

	// A token minted under another secret must not verify.
	viper.Set("security.reply_token_secret", "different-secret")
	_, err = ParseReplyToken(token)
	assert.Error(t, err)
}
