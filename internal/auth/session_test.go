package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/judgecore/judgecore/internal/apperr"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store, err := NewSessionStore(rdb, "session:", time.Hour, "test-secret-key")
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	return store, mr
}

func TestSessionPutGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	p := &Principal{UserID: 1, Username: "alice", AdminType: "Regular User"}
	token, err := store.Put(ctx, p)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := store.Get(ctx, token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Username != "alice" || got.UserID != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestSessionGetMissing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), "nonexistent")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindUnauthorized {
		t.Fatalf("expected KindUnauthorized, got %v", err)
	}
}

func TestSessionGetCorrupted(t *testing.T) {
	store, mr := newTestStore(t)
	if err := mr.Set("session:badtoken", "not-valid-ciphertext"); err != nil {
		t.Fatalf("seeding bad value: %v", err)
	}
	_, err := store.Get(context.Background(), "badtoken")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindCorruptedSession {
		t.Fatalf("expected KindCorruptedSession, got %v", err)
	}
}

func TestSessionDropIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	if err := store.Drop(ctx, "never-existed"); err != nil {
		t.Fatalf("Drop on missing key should not error: %v", err)
	}
}

func TestSessionTouchExtendsTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	p := &Principal{UserID: 2, Username: "bob"}
	token, err := store.Put(ctx, p)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	mr.FastForward(30 * time.Minute)
	if err := store.Touch(ctx, token); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	mr.FastForward(45 * time.Minute)

	if _, err := store.Get(ctx, token); err != nil {
		t.Fatalf("expected session to survive after Touch, got: %v", err)
	}
}
