package jwt

import (
	"testing"
	"time"

	"github.com/faceoff-app/backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	user := entity.User{ID: 42, Email: "voter@example.com", Role: entity.RoleAdmin}
	secret := []byte("secret")

	token, err := NewToken(user, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "voter@example.com", claims.Email)
	assert.Equal(t, entity.RoleAdmin, claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := NewToken(entity.User{ID: 1}, []byte("secret"), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("other-secret"))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := NewToken(entity.User{ID: 1}, []byte("secret"), -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("secret"))
	require.ErrorIs(t, err, ErrInvalidToken)
}
