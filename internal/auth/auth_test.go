package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gradschool/internal/config"
	"gradschool/internal/models"
)

func newTestService(expiration time.Duration) *Service {
	return NewService(&config.JWTConfig{
		Secret:     "test-secret",
		Issuer:     "gradschool",
		Expiration: expiration,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(time.Hour)

	token, err := svc.GenerateToken(42, "coordinator@test.edu", models.UserRoleCoordinator)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("Expected user ID 42, got %d", claims.UserID)
	}
	if claims.Email != "coordinator@test.edu" {
		t.Errorf("Expected email coordinator@test.edu, got %s", claims.Email)
	}
	if claims.Role != models.UserRoleCoordinator {
		t.Errorf("Expected role coordinator, got %s", claims.Role)
	}
	if claims.ID == "" {
		t.Error("Expected a token id")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.GenerateToken(1, "a@test.edu", models.UserRoleAdmin)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := newTestService(time.Hour).GenerateToken(1, "a@test.edu", models.UserRoleAdmin)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	other := NewService(&config.JWTConfig{Secret: "other-secret", Issuer: "gradschool", Expiration: time.Hour})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Expected validation to fail with a different secret")
	}
}

func TestValidateTokenRejectsOtherAlgorithm(t *testing.T) {
	claims := JWTClaims{
		UserID: 1,
		Role:   models.UserRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gradschool",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := newTestService(time.Hour).ValidateToken(token); err == nil {
		t.Error("Expected HS512 token to be rejected")
	}
}

func TestValidateTokenWithoutRole(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": 7,
		"iss":     "gradschool",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := newTestService(time.Hour).ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}
