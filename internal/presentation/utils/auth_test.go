package utils

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestUserIDFromRequest_BearerHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/rooms/room-1", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-42"))

	userID, err := UserIDFromRequest(r, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestUserIDFromRequest_TokenQueryFallback(t *testing.T) {
	token := signToken(t, testSecret, "user-42")
	r := httptest.NewRequest("GET", "/api/rooms/room-1/attach?token="+token, nil)

	userID, err := UserIDFromRequest(r, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestUserIDFromRequest_Missing(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/rooms/room-1", nil)

	_, err := UserIDFromRequest(r, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserIDFromRequest_MalformedHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/rooms/room-1", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, err := UserIDFromRequest(r, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserID_WrongSecret(t *testing.T) {
	_, err := ParseUserID(signToken(t, "other-secret", "user-42"), testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserID_ExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseUserID(signed, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserID_MissingSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseUserID(signed, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserIDContextRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-42")
	assert.Equal(t, "user-42", UserID(ctx))
	assert.Empty(t, UserID(context.Background()))
}
