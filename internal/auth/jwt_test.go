package auth

import (
	"testing"

	"github.com/erazemk/izposoja/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"

	token, err := GenerateToken(secret, 42, "alice", model.RoleModerator)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username alice, got %q", claims.Username)
	}
	if claims.Role != model.RoleModerator {
		t.Errorf("expected role %q, got %q", model.RoleModerator, claims.Role)
	}
	if claims.ID == "" {
		t.Error("expected non-empty JTI")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-one", 1, "bob", model.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken("secret-two", token); err == nil {
		t.Error("expected error for token signed with different secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestUniqueJTIs(t *testing.T) {
	secret := "test-secret"

	t1, _ := GenerateToken(secret, 1, "alice", model.RoleUser)
	t2, _ := GenerateToken(secret, 1, "alice", model.RoleUser)

	c1, _ := ValidateToken(secret, t1)
	c2, _ := ValidateToken(secret, t2)

	if c1.ID == c2.ID {
		t.Error("expected different JTIs for separately generated tokens")
	}
}
