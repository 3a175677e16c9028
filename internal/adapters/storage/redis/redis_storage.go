// Package redis disponibiliza o ledger compartilhado entre instâncias, baseado em Redis.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/JeanGrijp/coachgate/internal/core/domain"
	"github.com/JeanGrijp/coachgate/internal/core/ports"
)

const defaultPrefix = "coachgate:rl:"

// slidingWindowScript guarda os hits num sorted set com score em microssegundos.
// Scores chegam como strings para não perder precisão na conversão de números do Lua.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = ARGV[1]
local cutoff = ARGV[2]
local limit = tonumber(ARGV[3])
local member = ARGV[4]
local ttl_ms = tonumber(ARGV[5])

redis.call("ZREMRANGEBYSCORE", key, "-inf", cutoff)

local count = redis.call("ZCARD", key)
if count >= limit then
  return {0, count}
end

redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, ttl_ms)
return {1, count + 1}
`)

type Storage struct {
	client *redis.Client
	prefix string
}

var _ ports.Storage = (*Storage)(nil)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func New(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient reaproveita um cliente já conectado.
func NewWithClient(client *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Storage{client: client, prefix: prefix}
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Storage) Acquire(ctx context.Context, key string, now time.Time, rule domain.RateLimitRule) (int64, bool, error) {
	windowMicros := rule.Window.Microseconds()
	if windowMicros <= 0 {
		return 0, false, fmt.Errorf("invalid rate limit window")
	}

	// ZREMRANGEBYSCORE é inclusivo: o hit exatamente uma janela atrás sai.
	nowMicros := now.UnixMicro()
	res, err := slidingWindowScript.Run(ctx, s.client, []string{s.prefix + key},
		strconv.FormatInt(nowMicros, 10),
		strconv.FormatInt(nowMicros-windowMicros, 10),
		rule.Requests,
		uuid.NewString(),
		rule.Window.Milliseconds()+1,
	).Result()
	if err != nil {
		return 0, false, fmt.Errorf("run sliding window script: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, false, fmt.Errorf("unexpected redis response")
	}
	allowed, ok := vals[0].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected redis response")
	}
	count, ok := vals[1].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected redis response")
	}

	return count, allowed == 1, nil
}
