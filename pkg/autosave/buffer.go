// Package autosave implements the debounced code-autosave pipeline: an
// in-Redis write buffer fronting the durable code store, flushed by the
// Expiry Listener once a debounce key lapses.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/judgecore/judgecore/internal/store"
)

// keyPattern matches debounce keys of the form
// "<prefix>:debounce:user:<uid>:problem:<pid>:lang:<lang>".
var keyPattern = regexp.MustCompile(`^(?P<prefix>.+):debounce:user:(?P<uid>\d+):problem:(?P<pid>\d+):lang:(?P<lang>.+)$`)

// Buffer is the Autosave Buffer: it holds the latest unsaved code in
// Redis and arms a debounce key that, once it expires, signals the
// Expiry Listener to flush the write to the durable store.
type Buffer struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewBuffer builds a Buffer. prefix is REDIS_CODE_SAVE_PREFIX and ttl is
// CODE_SAVE_TTL_SECONDS.
func NewBuffer(rdb *redis.Client, prefix string, ttl time.Duration) *Buffer {
	return &Buffer{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (b *Buffer) dataKey(userID, problemID int64, language string) string {
	return fmt.Sprintf("%s:data:user:%d:problem:%d:lang:%s", b.prefix, userID, problemID, language)
}

func (b *Buffer) debounceKey(userID, problemID int64, language string) string {
	return fmt.Sprintf("%s:debounce:user:%d:problem:%d:lang:%s", b.prefix, userID, problemID, language)
}

// Save writes code to the data key, then arms the debounce key with the
// configured TTL. The data key is written first so a listener firing
// between the two writes can never observe an armed debounce key with no
// data behind it.
func (b *Buffer) Save(ctx context.Context, userID, problemID int64, language, code string) error {
	if err := b.rdb.Set(ctx, b.dataKey(userID, problemID, language), code, 0).Err(); err != nil {
		return fmt.Errorf("writing autosave data key: %w", err)
	}
	if err := b.rdb.SetEx(ctx, b.debounceKey(userID, problemID, language), "1", b.ttl).Err(); err != nil {
		return fmt.Errorf("arming autosave debounce key: %w", err)
	}
	return nil
}

// Get returns the most recent code for the user/problem/language triple:
// the buffered Redis value if present, otherwise the durable store's
// value, otherwise "".
func (b *Buffer) Get(ctx context.Context, codeStore *store.CodeStore, userID, problemID int64, language string) (string, error) {
	val, err := b.rdb.Get(ctx, b.dataKey(userID, problemID, language)).Result()
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("reading autosave data key: %w", err)
	}

	rec, err := codeStore.FindOne(ctx, problemID, userID, language)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}
	return rec.Code, nil
}
