package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	passwords := []string{"correct horse battery staple", "", "p@ss", "ünïcødé"}

	for _, pw := range passwords {
		hash, err := HashPassword(pw, bcrypt.MinCost)
		if err != nil {
			t.Fatalf("HashPassword(%q) failed: %v", pw, err)
		}
		if hash == pw {
			t.Errorf("hash must not equal plaintext")
		}
		if !CheckPassword(pw, hash) {
			t.Errorf("expected %q to verify against its own hash", pw)
		}
		if CheckPassword(pw+"x", hash) {
			t.Errorf("expected %q to fail against a different plaintext", pw+"x")
		}
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("same", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashPassword("same", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("expected two hashes of the same password to differ")
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73), bcrypt.MinCost)
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestCheckPassword_GarbageHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Error("expected garbage hash to fail verification")
	}
}
