package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}
	if !ok || uid != "user-1" {
		t.Fatalf("unexpected resolution: ok=%v uid=%q", ok, uid)
	}

	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("token resolved after delete")
	}
}

func TestRedisSessionStoreExpiresTokens(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)

	token, err := s.NewSession("user-2")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	redis.FastForward(2 * time.Minute)

	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("token resolved after TTL expiry")
	}
}

func TestRedisSessionStoreUnknownToken(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)

	uid, ok, err := s.GetUserIDByToken("no-such-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || uid != "" {
		t.Fatalf("unknown token resolved: ok=%v uid=%q", ok, uid)
	}
	if err := s.DeleteSession("no-such-token"); err != nil {
		t.Fatalf("delete of unknown token should be a no-op: %v", err)
	}
}
