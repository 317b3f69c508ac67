package jwt

import (
	"testing"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndParseToken(t *testing.T) {
	token, err := NewToken(&models.User{ID: "u1", Name: "Ann"}, "secret", time.Hour)
	require.NoError(t, err)

	uid, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestParseToken_Rejects(t *testing.T) {
	expired, err := NewToken(&models.User{ID: "u1"}, "secret", -time.Minute)
	require.NoError(t, err)

	valid, err := NewToken(&models.User{ID: "u1"}, "secret", time.Hour)
	require.NoError(t, err)

	noUID := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	noUIDString, err := noUID.SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name, token, secret string
	}{
		{name: "expired", token: expired, secret: "secret"},
		{name: "wrong secret", token: valid, secret: "other"},
		{name: "garbage", token: "not.a.token", secret: "secret"},
		{name: "missing uid", token: noUIDString, secret: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
