package util

import (
	"strings"
	"testing"
)

func TestHashPasswordArgon2RoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	hashed, err := HashPasswordArgon2("password123", salt)
	if err != nil {
		t.Fatalf("HashPasswordArgon2: %v", err)
	}

	if hashed == "password123" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !strings.HasPrefix(hashed, "argon2id$") {
		t.Fatalf("expected argon2id$ prefix, got %s", hashed)
	}

	match, err := VerifyPassword("password123", hashed)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !match {
		t.Fatal("expected correct password to verify")
	}

	match, err = VerifyPassword("wrongpassword", hashed)
	if err != nil {
		t.Fatalf("VerifyPassword wrong password: %v", err)
	}
	if match {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestHashPasswordArgon2SaltsDiffer(t *testing.T) {
	salt1, _ := GenerateSalt()
	salt2, _ := GenerateSalt()
	if salt1 == salt2 {
		t.Fatal("two generated salts should not collide")
	}

	h1, err := HashPasswordArgon2("password123", salt1)
	if err != nil {
		t.Fatalf("hash with salt1: %v", err)
	}
	h2, err := HashPasswordArgon2("password123", salt2)
	if err != nil {
		t.Fatalf("hash with salt2: %v", err)
	}
	if h1 == h2 {
		t.Fatal("same password with different salts must hash differently")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("password", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
	if _, err := VerifyPassword("password", "bcrypt$something"); err == nil {
		t.Fatal("expected error for foreign hash format")
	}
}

func TestJWTSecretRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret-123")
	got := GetJWTSecretByte()
	if string(got) != "test-secret-123" {
		t.Fatalf("expected stored secret, got %q", got)
	}

	// Mutating the returned slice must not affect the stored secret.
	got[0] = 'X'
	if string(GetJWTSecretByte()) != "test-secret-123" {
		t.Fatal("secret was mutated through the returned copy")
	}
}
