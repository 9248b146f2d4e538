package jwt

import (
	"testing"
	"time"
)

func TestSignParse(t *testing.T) {
	s, err := NewSigner("secret")
	if err != nil {
		t.Fatal(err)
	}
	tok, err := s.Sign("importer", time.Hour)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "importer" {
		t.Errorf("Expected subject importer, got %q", claims.Subject)
	}

	other, _ := NewSigner("other")
	if _, err := other.Parse(tok); err == nil {
		t.Error("Expected a token signed with another secret to be rejected")
	}
}

func TestParse_Expired(t *testing.T) {
	s, _ := NewSigner("secret")
	base := time.Now()
	s.now = func() time.Time { return base }
	tok, err := s.Sign("importer", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := s.Parse(tok); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestNewSigner_EmptySecret(t *testing.T) {
	if _, err := NewSigner(""); err == nil {
		t.Error("Expected an error for an empty secret")
	}
}
