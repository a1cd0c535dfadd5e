package auth

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/judgecore/judgecore/internal/apperr"
)

// SessionStore persists opaque-token session records in Redis, encrypted
// at rest with ChaCha20-Poly1305.
type SessionStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	aead   cipher.AEAD
}

// NewSessionStore builds a SessionStore. encryptionKey is hashed with
// SHA-256 to derive the AEAD key, so any non-empty secret is accepted.
func NewSessionStore(rdb *redis.Client, prefix string, ttl time.Duration, encryptionKey string) (*SessionStore, error) {
	if encryptionKey == "" {
		return nil, apperr.New(apperr.KindMisconfigured, "SESSION_ENCRYPTION_KEY must be set")
	}
	key := sha256.Sum256([]byte(encryptionKey))
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("building session AEAD: %w", err)
	}
	return &SessionStore{rdb: rdb, prefix: prefix, ttl: ttl, aead: aead}, nil
}

func (s *SessionStore) key(token string) string {
	return s.prefix + token
}

func (s *SessionStore) encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *SessionStore) decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return s.aead.Open(nil, nonce, sealed, nil)
}

// Put mints a new opaque 128-bit session token, encrypts p, and stores it
// with the configured TTL. Returns the token.
func (s *SessionStore) Put(ctx context.Context, p *Principal) (string, error) {
	token := uuid.NewString()

	plain, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling principal: %w", err)
	}
	sealed, err := s.encrypt(plain)
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, s.key(token), sealed, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("writing session: %w", err)
	}
	return token, nil
}

// Get resolves token to a Principal. A missing key returns
// apperr.KindUnauthorized; a present but undecryptable/unparsable value
// returns apperr.KindCorruptedSession.
func (s *SessionStore) Get(ctx context.Context, token string) (*Principal, error) {
	raw, err := s.rdb.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.New(apperr.KindUnauthorized, "session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	plain, err := s.decrypt(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCorruptedSession, "corrupted session data", err)
	}

	var p Principal
	if err := json.Unmarshal(plain, &p); err != nil {
		return nil, apperr.Wrap(apperr.KindCorruptedSession, "corrupted session data", err)
	}
	return &p, nil
}

// Touch slides the session's TTL forward. Missing keys are a no-op.
func (s *SessionStore) Touch(ctx context.Context, token string) error {
	ok, err := s.rdb.Expire(ctx, s.key(token), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("refreshing session ttl: %w", err)
	}
	_ = ok
	return nil
}

// Drop deletes the session record. A missing key is not an error.
func (s *SessionStore) Drop(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
