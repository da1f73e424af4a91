package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces refresh records in Redis.
const DefaultKeyPrefix = "refreshToken"

const (
	swapMissing  = 0
	swapReplaced = 1
	swapRevoked  = 2
)

const swapScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 2
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var swapLua = redis.NewScript(swapScript)

// RedisStore keeps one string key per account: <prefix>:<accountID>.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store writing records with the given TTL. An empty
// prefix selects DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    normalizeTTL(ttl),
	}
}

func (s *RedisStore) key(accountID string) string {
	return s.prefix + ":" + accountID
}

func (s *RedisStore) Put(ctx context.Context, accountID, token string) error {
	if err := s.redis.Set(ctx, s.key(accountID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, accountID string) (string, error) {
	token, err := s.redis.Get(ctx, s.key(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return token, nil
}

func (s *RedisStore) Delete(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Swap runs the compare-and-replace as one Lua script so concurrent reissues
// of the same token cannot both succeed.
func (s *RedisStore) Swap(ctx context.Context, accountID, presented, next string) error {
	code, err := swapLua.Run(
		ctx,
		s.redis,
		[]string{s.key(accountID)},
		presented,
		next,
		strconv.FormatInt(s.ttl.Milliseconds(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch code {
	case swapReplaced:
		return nil
	case swapMissing:
		return ErrNotFound
	case swapRevoked:
		return ErrMismatch
	default:
		return fmt.Errorf("%w: unexpected swap status %d", ErrUnavailable, code)
	}
}
