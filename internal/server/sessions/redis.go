package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix  = "session:"
	accountKeyPrefix  = "account_sessions:"
	defaultAccountTTL = 15 * 24 * time.Hour
)

// RedisRegistry stores each session as session:<id> -> account id with the
// session's TTL, and indexes them per account in the set
// account_sessions:<account id>.
type RedisRegistry struct {
	client redis.Cmdable
	// accountTTL bounds the lifetime of the per-account index; it should be
	// at least the longest session TTL.
	accountTTL time.Duration
}

func NewRedisRegistry(client redis.Cmdable, accountTTL time.Duration) *RedisRegistry {
	if accountTTL <= 0 {
		accountTTL = defaultAccountTTL
	}
	return &RedisRegistry{client: client, accountTTL: accountTTL}
}

// ConnectRedis parses url, applies pool and timeout settings and pings the
// server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisRegistry) Add(ctx context.Context, accountID, sessionID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, sessionKeyPrefix+sessionID, accountID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	accountKey := accountKeyPrefix + accountID
	if err := r.client.SAdd(ctx, accountKey, sessionID).Err(); err != nil {
		return fmt.Errorf("redis index session: %w", err)
	}
	if err := r.client.Expire(ctx, accountKey, r.accountTTL).Err(); err != nil {
		return fmt.Errorf("redis expire index: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Active(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n == 1, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, accountID, sessionID string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	if err := r.client.SRem(ctx, accountKeyPrefix+accountID, sessionID).Err(); err != nil {
		return fmt.Errorf("redis unindex session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) RemoveAll(ctx context.Context, accountID string) error {
	accountKey := accountKeyPrefix + accountID

	ids, err := r.client.SMembers(ctx, accountKey).Result()
	if err != nil {
		return fmt.Errorf("redis list sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}
	keys = append(keys, accountKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del sessions: %w", err)
	}
	return nil
}
