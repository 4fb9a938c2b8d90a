// Package session persists signed-in users and resolves them on every request.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"sendmoney/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
	ErrRevoked  = errors.New("session revoked")
)

// Store keeps session records keyed by the hash of their raw token.
type Store interface {
	Create(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Lookup(ctx context.Context, raw string) (models.Session, error)
	Revoke(ctx context.Context, raw string) error
}

// newRawToken returns a random 32-byte token (hex) and the hash to store.
func newRawToken() (string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw := hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

func checkUsable(s models.Session, now time.Time) error {
	if s.Revoked {
		return ErrRevoked
	}
	if now.After(s.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

// GormStore keeps sessions in the sessions table.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Create(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	raw, th, err := newRawToken()
	if err != nil {
		return "", err
	}
	rec := models.Session{UserID: userID, TokenHash: th, ExpiresAt: s.now().Add(ttl)}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return raw, nil
}

func (s *GormStore) Lookup(ctx context.Context, raw string) (models.Session, error) {
	var rec models.Session
	err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(raw)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if err := checkUsable(rec, s.now()); err != nil {
		return models.Session{}, err
	}
	return rec, nil
}

func (s *GormStore) Revoke(ctx context.Context, raw string) error {
	res := s.db.WithContext(ctx).Model(&models.Session{}).Where("token_hash = ?", hashToken(raw)).Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryStore is used when no database is configured.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint
	byHash map[string]models.Session
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]models.Session), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, userID int64, ttl time.Duration) (string, error) {
	raw, th, err := newRawToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now()
	s.byHash[th] = models.Session{ID: s.nextID, CreatedAt: now, UpdatedAt: now, UserID: userID, TokenHash: th, ExpiresAt: now.Add(ttl)}
	return raw, nil
}

func (s *MemoryStore) Lookup(_ context.Context, raw string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byHash[hashToken(raw)]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	if err := checkUsable(rec, s.now()); err != nil {
		return models.Session{}, err
	}
	return rec, nil
}

func (s *MemoryStore) Revoke(_ context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th := hashToken(raw)
	rec, ok := s.byHash[th]
	if !ok {
		return ErrNotFound
	}
	rec.Revoked = true
	rec.UpdatedAt = s.now()
	s.byHash[th] = rec
	return nil
}
