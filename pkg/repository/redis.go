package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "plenty:combination:"
	redisIndexKey  = "plenty:combinations"
)

// putScript indexes and stores a combination in one step. ZADD runs first so a
// failing index leaves no record behind.
var putScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
redis.call("SET", KEYS[1], ARGV[1])
return 1
`)

// Redis implements Repository on a Redis server. Each combination is a JSON
// string written only when absent; a sorted set indexes keys by creation time.
type Redis struct {
	rdb *redis.Client
}

// NewRedis creates a Redis repository and verifies connectivity
func NewRedis(ctx context.Context, opts *redis.Options) (*Redis, error) {
	if opts == nil || opts.Addr == "" {
		return nil, goerr.New("redis address is required")
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", opts.Addr))
	}

	return &Redis{rdb: rdb}, nil
}

func redisKey(key model.CombinationKey) string {
	return redisKeyPrefix + string(key)
}

func (r *Redis) GetCombination(ctx context.Context, key model.CombinationKey) (*model.Combination, error) {
	data, err := r.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get combination", goerr.V("key", key))
	}

	var c model.Combination
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, goerr.Wrap(err, "failed to decode combination", goerr.V("key", key))
	}
	return &c, nil
}

func (r *Redis) PutCombination(ctx context.Context, c *model.Combination) error {
	if err := validateCombination(c); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return goerr.Wrap(err, "failed to encode combination", goerr.V("key", c.Key))
	}

	keys := []string{redisKey(c.Key), redisIndexKey}
	stored, err := putScript.Run(ctx, r.rdb, keys, data, c.CreatedAt.UnixNano(), string(c.Key)).Int()
	if err != nil {
		return goerr.Wrap(err, "failed to put combination", goerr.V("key", c.Key))
	}
	if stored == 0 {
		return goerr.Wrap(ErrAlreadyExists, "failed to put combination", goerr.V("key", c.Key))
	}

	return nil
}

func (r *Redis) ListCombinations(ctx context.Context, offset, limit int) ([]*model.Combination, error) {
	if offset < 0 {
		offset = 0
	}
	stop := int64(offset + normalizeLimit(limit) - 1)

	keys, err := r.rdb.ZRevRange(ctx, redisIndexKey, int64(offset), stop).Result()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list combination keys")
	}
	if len(keys) == 0 {
		return []*model.Combination{}, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = redisKey(model.CombinationKey(k))
	}

	values, err := r.rdb.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get combinations")
	}

	combinations := make([]*model.Combination, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// indexed but value missing
			continue
		}
		var c model.Combination
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			return nil, goerr.Wrap(err, "failed to decode combination", goerr.V("key", keys[i]))
		}
		combinations = append(combinations, &c)
	}

	return combinations, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
