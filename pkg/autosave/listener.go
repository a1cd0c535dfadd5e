package autosave

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/judgecore/judgecore/internal/store"
)

const heartbeatInterval = 30 * time.Second

// Listener is the Expiry Listener: it subscribes to Redis keyspace
// expiry notifications on the autosave database and flushes each expired
// debounce key's buffered code into the durable store.
type Listener struct {
	rdb       *redis.Client
	buffer    *Buffer
	codeStore *store.CodeStore
	prefix    string
	logger    *slog.Logger
}

// NewListener builds a Listener. The caller's Redis client must be
// connected to the autosave database (index 10) with
// notify-keyspace-events including "Ex" enabled.
func NewListener(rdb *redis.Client, buffer *Buffer, codeStore *store.CodeStore, prefix string, logger *slog.Logger) *Listener {
	return &Listener{rdb: rdb, buffer: buffer, codeStore: codeStore, prefix: prefix, logger: logger}
}

// Run subscribes to the expired-keyspace-event channel for the autosave
// database and flushes debounce keys as they expire, until ctx is
// cancelled.
func (l *Listener) Run(ctx context.Context) error {
	pubsub := l.rdb.Subscribe(ctx, "__keyevent@10__:expired")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	l.logger.Info("autosave expiry listener started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			l.flush(ctx, msg.Payload)
		case <-ticker.C:
			l.logger.Debug("autosave expiry listener alive")
		}
	}
}

func (l *Listener) flush(ctx context.Context, debounceKey string) {
	if !strings.HasPrefix(debounceKey, l.prefix+":debounce:") {
		return
	}

	userID, problemID, language, ok := parseDebounceKey(debounceKey)
	if !ok {
		l.logger.Warn("autosave listener: unparsable debounce key", "key", debounceKey)
		return
	}

	dataKey := l.buffer.dataKey(userID, problemID, language)
	code, err := l.rdb.Get(ctx, dataKey).Result()
	if errors.Is(err, redis.Nil) {
		return
	}
	if err != nil {
		l.logger.Error("autosave listener: reading data key failed", "key", dataKey, "error", err)
		return
	}

	if err := l.codeStore.Upsert(ctx, problemID, userID, language, code); err != nil {
		l.logger.Error("autosave listener: saving code failed", "key", dataKey, "error", err)
		return
	}

	if err := l.rdb.Del(ctx, dataKey).Err(); err != nil {
		l.logger.Error("autosave listener: deleting data key failed", "key", dataKey, "error", err)
	}
}

func parseDebounceKey(key string) (userID, problemID int64, language string, ok bool) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, "", false
	}
	names := keyPattern.SubexpNames()

	var uidStr, pidStr string
	for i, name := range names {
		switch name {
		case "uid":
			uidStr = m[i]
		case "pid":
			pidStr = m[i]
		case "lang":
			language = m[i]
		}
	}

	uid, err := strconv.ParseInt(uidStr, 10, 64)
	if err != nil {
		return 0, 0, "", false
	}
	pid, err := strconv.ParseInt(pidStr, 10, 64)
	if err != nil {
		return 0, 0, "", false
	}
	return uid, pid, language, true
}
