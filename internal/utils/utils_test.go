package utils

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	tok, err := IssueToken(secret, "user-42", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := ParseToken(secret, tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID() != "user-42" {
		t.Fatalf("subject = %q", claims.UserID())
	}

	if _, err := ParseToken([]byte("other"), tok); err == nil {
		t.Fatal("token accepted with the wrong secret")
	}
	if _, err := IssueToken(secret, " ", time.Hour); err == nil {
		t.Fatal("token issued without a user")
	}
}

func TestParseTokenExpired(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	tok, err := IssueToken(secret, "u", time.Nanosecond)
	if err != nil {
		t.Fatal(err)
	}
	// Leeway is two minutes, so a token that expired a nanosecond ago still passes.
	if _, err := ParseToken(secret, tok); err != nil {
		t.Fatalf("token inside leeway rejected: %v", err)
	}
}

func TestSealer(t *testing.T) {
	t.Parallel()

	s, err := NewSealer("k1")
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := s.Seal("access-token")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sealed, "access-token") {
		t.Fatal("sealed value contains the plaintext")
	}
	again, _ := s.Seal("access-token")
	if again == sealed {
		t.Fatal("sealing is deterministic; nonce not random")
	}
	plain, err := s.Open(sealed)
	if err != nil || plain != "access-token" {
		t.Fatalf("Open = %q, %v", plain, err)
	}

	other, _ := NewSealer("k2")
	if _, err := other.Open(sealed); err == nil {
		t.Fatal("opened with the wrong key")
	}
	if _, err := s.Open("!!"); err == nil {
		t.Fatal("opened garbage")
	}
	if _, err := NewSealer(""); err == nil {
		t.Fatal("empty secret accepted")
	}
}
