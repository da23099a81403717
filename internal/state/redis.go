package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/agenda-distribuida/events-web/internal/pagination"
)

// commitScript writes ARGV[2] to KEYS[2] only when KEYS[1] still holds token ARGV[1].
var commitScript = redis.NewScript(`
local latest = redis.call('GET', KEYS[1])
if latest and tonumber(latest) ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisStore keeps state in Redis so that every instance of the frontend sees
// the same session.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps client. Keys expire ttl after their last write.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Load(ctx context.Context, key string, dst interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return json.Unmarshal(data, dst)
}

// Take uses GETDEL, which needs Redis 6.2 or newer.
func (r *RedisStore) Take(ctx context.Context, key string, dst interface{}) error {
	data, err := r.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("take %s: %w", key, err)
	}
	return json.Unmarshal(data, dst)
}

func (r *RedisStore) Save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) NextToken(ctx context.Context, key string) (pagination.Token, error) {
	tk := tokenKey(key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, tk)
	pipe.Expire(ctx, tk, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("issue token for %s: %w", key, err)
	}
	return pagination.Token(incr.Val()), nil
}

func (r *RedisStore) CommitIfLatest(ctx context.Context, key string, token pagination.Token, v interface{}) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}

	res, err := commitScript.Run(ctx, r.client,
		[]string{tokenKey(key), key},
		uint64(token), data, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("commit %s: %w", key, err)
	}
	return res == 1, nil
}
