package session

import (
	"context"
	"errors"
	"log"
	"time"

	"sendmoney/pkg/transfer"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, badly signed or expired session tokens.
var ErrInvalidToken = errors.New("invalid session token")

// SignToken wraps a raw session token into an HS256 JWT for the cookie.
func SignToken(secret []byte, raw string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": raw,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// ParseToken verifies a session JWT and returns the raw session token inside.
func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", ErrInvalidToken
	}
	return sid, nil
}

// Issue creates a session for userID and returns its signed token.
func Issue(ctx context.Context, store Store, secret []byte, userID int64, ttl time.Duration) (string, error) {
	raw, err := store.Create(ctx, userID, ttl)
	if err != nil {
		return "", err
	}
	return SignToken(secret, raw, ttl)
}

// Provider resolves the user behind one raw session token. It holds no user
// data itself: each CurrentUserID call reads the store again.
type Provider struct {
	Store Store
	Raw   string
}

var _ transfer.Session = Provider{}

func (p Provider) CurrentUserID(ctx context.Context) (transfer.UserID, bool) {
	if p.Store == nil || p.Raw == "" {
		return 0, false
	}
	rec, err := p.Store.Lookup(ctx, p.Raw)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExpired) && !errors.Is(err, ErrRevoked) {
			log.Printf("session lookup failed: %v", err)
		}
		return 0, false
	}
	if rec.UserID == 0 {
		return 0, false
	}
	return transfer.UserID(rec.UserID), true
}
