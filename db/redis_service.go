package db

import (
	"context"
	"errors"
	"fmt"

	"cluster-dashboard-go/models"
	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultKeyPrefix namespaces slot keys when no prefix is configured.
	DefaultKeyPrefix = "clusters:"

	seqSuffix  = ":seq"  // String: latest issued request sequence for a mode
	slotSuffix = ":slot" // String: JSON-encoded Slot for a mode
)

// commitScript writes the slot only if its sequence is still the latest one issued.
var commitScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if tonumber(ARGV[1]) ~= current then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

// RedisStore keeps the per-mode slots in Redis so several dashboard
// instances share one view of the latest run.
type RedisStore struct {
	Client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{Client: client, prefix: prefix, logger: logger}
}

// Helper to generate the sequence key of a mode
func (s *RedisStore) seqKey(mode models.Mode) string {
	return s.prefix + string(mode) + seqSuffix
}

// Helper to generate the slot key of a mode
func (s *RedisStore) slotKey(mode models.Mode) string {
	return s.prefix + string(mode) + slotSuffix
}

// NextSeq issues the next request sequence number for a mode.
func (s *RedisStore) NextSeq(ctx context.Context, mode models.Mode) (uint64, error) {
	n, err := s.Client.Incr(ctx, s.seqKey(mode)).Result()
	if err != nil {
		s.logger.Error("Error issuing sequence", zap.String("mode", string(mode)), zap.Error(err))
		return 0, fmt.Errorf("failed to issue sequence for %s: %w", mode, err)
	}
	return uint64(n), nil
}

// Commit stores slot only when slot.Seq is the latest sequence issued for mode.
func (s *RedisStore) Commit(ctx context.Context, mode models.Mode, slot Slot) (bool, error) {
	data, err := json.Marshal(slot)
	if err != nil {
		return false, fmt.Errorf("failed to encode slot for %s: %w", mode, err)
	}
	applied, err := commitScript.Run(ctx, s.Client, []string{s.seqKey(mode), s.slotKey(mode)}, slot.Seq, data).Int()
	if err != nil {
		s.logger.Error("Error committing slot", zap.String("mode", string(mode)), zap.Uint64("seq", slot.Seq), zap.Error(err))
		return false, fmt.Errorf("failed to commit slot for %s: %w", mode, err)
	}
	return applied == 1, nil
}

// Load returns the slot for mode, if any.
func (s *RedisStore) Load(ctx context.Context, mode models.Mode) (Slot, bool, error) {
	data, err := s.Client.Get(ctx, s.slotKey(mode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Slot{}, false, nil // Nothing stored yet
		}
		s.logger.Error("Error loading slot", zap.String("mode", string(mode)), zap.Error(err))
		return Slot{}, false, fmt.Errorf("failed to load slot for %s: %w", mode, err)
	}
	var slot Slot
	if err := json.Unmarshal(data, &slot); err != nil {
		return Slot{}, false, fmt.Errorf("failed to decode slot for %s: %w", mode, err)
	}
	return slot, true, nil
}

// Discard drops the slot and fences off any run still in flight for mode.
func (s *RedisStore) Discard(ctx context.Context, mode models.Mode) error {
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, s.seqKey(mode))
		pipe.Del(ctx, s.slotKey(mode))
		return nil
	})
	if err != nil {
		s.logger.Error("Error discarding slot", zap.String("mode", string(mode)), zap.Error(err))
		return fmt.Errorf("failed to discard slot for %s: %w", mode, err)
	}
	return nil
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client and pings it.
func NewRedisClient(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", opts.Addr, err)
	}

	if logger != nil {
		logger.Info("Connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	}
	return rdb, nil
}
