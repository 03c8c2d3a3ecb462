package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{"single char", "x"},
		{"simple", "password123"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"unicode", "密码123"},
		{"spaces", "  padded  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if hash == tt.password {
				t.Fatal("Hash() returned the plaintext")
			}
			if !h.Verify(tt.password, hash) {
				t.Fatal("Verify() = false for the original password")
			}
			if h.Verify(tt.password+"!", hash) {
				t.Fatal("Verify() = true for an altered password")
			}
		})
	}
}

func TestPasswordHasher_SaltedPerCall(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestPasswordHasher_EmptyAndMalformed(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	if _, err := h.Hash(""); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	for _, bad := range []string{"", "not-a-hash", "$2a$10$short"} {
		if h.Verify("password", bad) {
			t.Fatalf("Verify() = true for malformed hash %q", bad)
		}
	}
}

func TestPasswordHasher_CostFallback(t *testing.T) {
	h := NewPasswordHasher(99)
	if h.cost != DefaultBcryptCost {
		t.Fatalf("cost = %d, want %d", h.cost, DefaultBcryptCost)
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatal("empty context should carry no identity")
	}
	ctx := WithIdentity(context.Background(), "user-a")
	id, ok := IdentityFrom(ctx)
	if !ok || id != "user-a" {
		t.Fatalf("IdentityFrom() = %q, %v", id, ok)
	}
	if _, ok := IdentityFrom(WithIdentity(context.Background(), "")); ok {
		t.Fatal("empty identity must not count as authenticated")
	}
}
