package auth

import (
	"errors"
	"testing"
)

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("festival-secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	if err := VerifyPassword(hash, "festival-secret"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := VerifyPassword("", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for empty hash, got %v", err)
	}
	if err := VerifyPassword(hash, ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for empty password, got %v", err)
	}
}
