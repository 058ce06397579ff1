package store

import (
	"testing"
	"time"
)

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}
	if !ok || uid != "user-1" {
		t.Fatalf("unexpected resolution: ok=%v uid=%q", ok, uid)
	}
}

func TestJWTSessionStoreRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTSessionStore("secret-a", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	verifier, err := NewJWTSessionStore("secret-b", time.Minute)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := issuer.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, _ := verifier.GetUserIDByToken(token); ok {
		t.Fatal("token with wrong signature resolved")
	}
}

func TestJWTSessionStoreRejectsExpiredToken(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("expired token resolved")
	}
}

func TestJWTSessionStoreRejectsGarbage(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken("not.a.jwt"); ok {
		t.Fatal("garbage token resolved")
	}
}

func TestNewJWTSessionStoreRequiresSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
