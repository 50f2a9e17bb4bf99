package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewManager(t *testing.T) {
	secret := "test-secret-key-for-testing-purposes"
	duration := 15 * time.Minute

	manager := NewManager(secret, duration)

	assert.NotNil(t, manager)
	assert.Equal(t, secret, manager.secretKey)
	assert.Equal(t, duration, manager.tokenDuration)
}

func TestGenerate(t *testing.T) {
	manager := NewManager("test-secret", 15*time.Minute)
	userID := uuid.New()

	token, err := manager.Generate(userID, "testuser")

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestValidate_ValidToken(t *testing.T) {
	manager := NewManager("test-secret", 15*time.Minute)
	userID := uuid.New()

	token, err := manager.Generate(userID, "testuser")
	assert.NoError(t, err)

	claims, err := manager.Validate(token)

	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, "meshline-auth", claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestValidate_ExpiredToken(t *testing.T) {
	manager := NewManager("test-secret", 1*time.Nanosecond)
	userID := uuid.New()

	token, err := manager.Generate(userID, "testuser")
	assert.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := manager.Validate(token)

	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidate_InvalidToken(t *testing.T) {
	manager := NewManager("test-secret", 15*time.Minute)

	claims, err := manager.Validate("invalid.token.here")

	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidate_WrongSecret(t *testing.T) {
	manager1 := NewManager("secret-1", 15*time.Minute)
	userID := uuid.New()
	token, err := manager1.Generate(userID, "testuser")
	assert.NoError(t, err)

	manager2 := NewManager("secret-2", 15*time.Minute)
	claims, err := manager2.Validate(token)

	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestUserIDFromClaims_SubjectClaim(t *testing.T) {
	userID := uuid.New()

	got, ok := UserIDFromClaims(jwtlib.MapClaims{"sub": userID.String()})

	assert.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestUserIDFromClaims_FallbackOrder(t *testing.T) {
	subID := uuid.New()
	uidID := uuid.New()

	// "sub" wins over later names even when both parse.
	got, ok := UserIDFromClaims(jwtlib.MapClaims{
		"sub": subID.String(),
		"uid": uidID.String(),
	})
	assert.True(t, ok)
	assert.Equal(t, subID, got)

	// A non-UUID "sub" defers to the next parseable claim.
	got, ok = UserIDFromClaims(jwtlib.MapClaims{
		"sub": "service-account",
		"uid": uidID.String(),
	})
	assert.True(t, ok)
	assert.Equal(t, uidID, got)
}

func TestUserIDFromClaims_NoParseableClaim(t *testing.T) {
	got, ok := UserIDFromClaims(jwtlib.MapClaims{
		"sub":  "not-a-uuid",
		"user": 42,
	})

	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, got)
}
