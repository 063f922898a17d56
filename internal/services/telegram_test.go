package services_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkcoin-backend/internal/services"
)

const testBotToken = "12345:TEST_TOKEN"

func signInitData(values url.Values, botToken string) string {
	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidateInitData(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id": 42, "username": "alice", "first_name": "Alice"}`)
	values.Set("auth_date", "1700000000")
	values.Set("hash", signInitData(values, testBotToken))

	user, err := services.ValidateInitData(values.Encode(), testBotToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "@alice", user.DisplayName())
}

func TestValidateInitDataRejectsTamper(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id": 42, "username": "alice"}`)
	values.Set("auth_date", "1700000000")
	values.Set("hash", signInitData(values, testBotToken))

	values.Set("user", `{"id": 43, "username": "mallory"}`)

	_, err := services.ValidateInitData(values.Encode(), testBotToken)
	assert.Error(t, err)
}

func TestValidateInitDataRejectsMissingHash(t *testing.T) {
	_, err := services.ValidateInitData("user=%7B%22id%22%3A42%7D", testBotToken)
	assert.Error(t, err)
}

func TestDisplayNameFallsBackToFirstName(t *testing.T) {
	user := &services.TelegramUser{ID: 42, FirstName: "Alice"}
	assert.Equal(t, "Alice", user.DisplayName())
}

func TestJWTRoundtrip(t *testing.T) {
	jwtService := services.NewJWTService("test-key")

	token, err := jwtService.GenerateToken("telegram:42", "42")
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "telegram:42", claims.UserID)
	assert.Equal(t, "42", claims.TelegramID)

	_, err = jwtService.ValidateToken(token + "x")
	assert.Error(t, err)

	other := services.NewJWTService("other-key")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
