package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"sendmoney/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	raw, err := s.Create(ctx, 7, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, err := s.Lookup(ctx, raw)
	if err != nil || rec.UserID != 7 {
		t.Fatalf("lookup got %+v err=%v", rec, err)
	}
	if rec.TokenHash == raw {
		t.Fatalf("raw token must not be stored")
	}
	if _, err := s.Lookup(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if err := s.Revoke(ctx, raw); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.Lookup(ctx, raw); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	raw, _ := s.Create(context.Background(), 7, time.Minute)
	now = now.Add(2 * time.Minute)
	if _, err := s.Lookup(context.Background(), raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignToken(secret, "abc", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sid, err := ParseToken(secret, tok)
	if err != nil || sid != "abc" {
		t.Fatalf("parse got %q err=%v", sid, err)
	}
	if _, err := ParseToken([]byte("other"), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret must fail, got %v", err)
	}
	expired, _ := SignToken(secret, "abc", -time.Minute)
	if _, err := ParseToken(secret, expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token must fail, got %v", err)
	}
}

func TestProviderReadsStoreEveryCall(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	raw, _ := s.Create(ctx, 7, time.Hour)
	p := Provider{Store: s, Raw: raw}
	if id, ok := p.CurrentUserID(ctx); !ok || id != 7 {
		t.Fatalf("expected user 7 got %d ok=%v", id, ok)
	}
	_ = s.Revoke(ctx, raw)
	if _, ok := p.CurrentUserID(ctx); ok {
		t.Fatalf("revoked session must no longer resolve")
	}
	if _, ok := (Provider{}).CurrentUserID(ctx); ok {
		t.Fatalf("empty provider must not resolve")
	}
}

func TestIssue(t *testing.T) {
	s := NewMemoryStore()
	secret := []byte("k")
	tok, err := Issue(context.Background(), s, secret, 9, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	raw, err := ParseToken(secret, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id, ok := (Provider{Store: s, Raw: raw}).CurrentUserID(context.Background()); !ok || id != 9 {
		t.Fatalf("expected user 9 got %d", id)
	}
}

// Opt-in: DB_DSN_TEST=1 with DB_DSN pointing at a scratch postgres database.
func TestGormStore(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gdb, err := gorm.Open(postgres.Open(os.Getenv("DB_DSN")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := NewGormStore(gdb)
	ctx := context.Background()
	raw, err := s.Create(ctx, 7, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, err := s.Lookup(ctx, raw)
	if err != nil || rec.UserID != 7 {
		t.Fatalf("lookup got %+v err=%v", rec, err)
	}
	if err := s.Revoke(ctx, raw); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.Lookup(ctx, raw); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked got %v", err)
	}
	if err := s.Revoke(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}
