package auth

import (
	"testing"
	"time"
)

func TestValidateTokenRejectsWrongSecretAndAudience(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("secret"), Issuer: "greenleaf", Audience: "client", AccessTTL: time.Minute}

	token, err := GenerateToken(cfg, 1, "ana", KindAccess)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := *cfg
	other.Secret = []byte("other")
	if _, err := ValidateToken(&other, token, KindAccess); err == nil {
		t.Fatalf("expected signature failure")
	}

	other = *cfg
	other.Audience = "someone-else"
	if _, err := ValidateToken(&other, token, KindAccess); err == nil {
		t.Fatalf("expected audience failure")
	}
}

func TestTokenExpired(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("secret"), AccessTTL: time.Minute}
	token, err := GenerateToken(cfg, 1, "ana", KindAccess)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	now := time.Now()
	if TokenExpired(token, now, 0) {
		t.Fatalf("fresh token reported expired")
	}
	if !TokenExpired(token, now.Add(2*time.Minute), 0) {
		t.Fatalf("token not reported expired after ttl")
	}
	if !TokenExpired(token, now, 2*time.Minute) {
		t.Fatalf("leeway not applied")
	}
	if TokenExpired("not-a-jwt", now, 0) {
		t.Fatalf("opaque token must be left to the server")
	}
}
