package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "loadhub-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{
		UserID:  uuid.New(),
		ActorID: uuid.New(),
		Role:    enums.ActorRoleDriver,
	}

	signed, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("user id mismatch: %s != %s", claims.UserID, payload.UserID)
	}
	if claims.ActorID != payload.ActorID {
		t.Fatalf("actor id mismatch")
	}
	if claims.Role != enums.ActorRoleDriver {
		t.Fatalf("role mismatch: %s", claims.Role)
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		UserID:  uuid.New(),
		ActorID: uuid.New(),
		Role:    enums.ActorRole("pilot"),
	})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		UserID:  uuid.New(),
		ActorID: uuid.New(),
		Role:    enums.ActorRoleCargoOwner,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:  uuid.New(),
		ActorID: uuid.New(),
		Role:    enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, signed); err == nil {
		t.Fatal("expected issuer mismatch to be rejected")
	}
}
