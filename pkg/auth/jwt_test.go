package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
)

func testUser() *model.User {
	u := &model.User{Username: "eva", Roles: []string{model.RoleRRHH}}
	u.ID = uuid.New()
	return u
}

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", "clinic", time.Hour)
	user := testUser()

	token, issued, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TokenID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "eva", claims.Username)
	assert.Equal(t, []string{model.RoleRRHH}, claims.Roles)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.True(t, claims.IssuedAt.Equal(issued.IssuedAt))
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 2*time.Second)
}

func TestValidateRejectsWrongSecretAndIssuer(t *testing.T) {
	token, _, err := NewJWTService("secret", "clinic", time.Hour).GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = NewJWTService("other", "clinic", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTService("secret", "elsewhere", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTService("secret", "clinic", time.Hour).ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewJWTService("secret", "clinic", time.Minute).(*jwtService)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	c := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "clinic",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("secret", "clinic", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
