package autosave

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBuffer(t *testing.T) (*Buffer, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewBuffer(rdb, "code_save", 5*time.Second), mr, rdb
}

func TestBufferSaveWritesDataAndDebounceKeys(t *testing.T) {
	buf, mr, _ := newTestBuffer(t)
	ctx := context.Background()

	if err := buf.Save(ctx, 1, 42, "python3", "print(1)"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !mr.Exists(buf.dataKey(1, 42, "python3")) {
		t.Error("expected data key to be written")
	}
	if !mr.Exists(buf.debounceKey(1, 42, "python3")) {
		t.Error("expected debounce key to be armed")
	}
}

func TestBufferGetPrefersRedisOverDB(t *testing.T) {
	buf, _, _ := newTestBuffer(t)
	ctx := context.Background()

	if err := buf.Save(ctx, 1, 42, "python3", "print(1)"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := buf.Get(ctx, nil, 1, 42, "python3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "print(1)" {
		t.Errorf("got %q, want %q", got, "print(1)")
	}
}

func TestParseDebounceKeyRoundTrip(t *testing.T) {
	buf, _, _ := newTestBuffer(t)
	key := buf.debounceKey(7, 99, "cpp")

	uid, pid, lang, ok := parseDebounceKey(key)
	if !ok {
		t.Fatalf("expected key to parse: %s", key)
	}
	if uid != 7 || pid != 99 || lang != "cpp" {
		t.Errorf("got uid=%d pid=%d lang=%s", uid, pid, lang)
	}
}

func TestParseDebounceKeyRejectsGarbage(t *testing.T) {
	if _, _, _, ok := parseDebounceKey("not-a-debounce-key"); ok {
		t.Fatal("expected garbage key to fail to parse")
	}
}
