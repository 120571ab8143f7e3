package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/enums"
)

func testAdminConfig(minutes int) config.AdminConfig {
	return config.AdminConfig{
		JWTSecret:         "secret",
		JWTIssuer:         "hackbot",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testAdminConfig(30)
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{StaffID: "mod-42", Role: enums.StaffRoleModerator})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.StaffID != "mod-42" || claims.Subject != "mod-42" {
		t.Fatalf("staff id not preserved: %+v", claims)
	}
	if claims.Role != enums.StaffRoleModerator {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.JWTIssuer {
		t.Fatalf("expected issuer %s, got %s", cfg.JWTIssuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected generated jti")
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testAdminConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{StaffID: "mod-1", Role: enums.StaffRoleOrganizer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}

	other := cfg
	other.JWTSecret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected secret mismatch error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testAdminConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{StaffID: "mod-1", Role: enums.StaffRoleModerator})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	cfg := testAdminConfig(5)
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{StaffID: "mod-1", Role: ""}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{StaffID: " ", Role: enums.StaffRoleModerator}); err == nil {
		t.Fatal("expected missing staff id error")
	}
	if _, err := MintAccessToken(config.AdminConfig{}, time.Now(), AccessTokenPayload{StaffID: "mod-1", Role: enums.StaffRoleModerator}); err == nil {
		t.Fatal("expected missing secret error")
	}
}
