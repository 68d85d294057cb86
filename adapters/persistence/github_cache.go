package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/devconnector/internal/domain/github"
)

const githubReposKeyPrefix = "github:repos:"

type RedisRepoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRepoCache(rdb *redis.Client, ttl time.Duration) *RedisRepoCache {
	return &RedisRepoCache{rdb: rdb, ttl: ttl}
}

// GitHub logins are case-insensitive, so the key is too.
func githubReposKey(username string) string {
	return githubReposKeyPrefix + strings.ToLower(username)
}

func (c *RedisRepoCache) Get(ctx context.Context, username string) ([]github.Repo, bool, error) {
	raw, err := c.rdb.Get(ctx, githubReposKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read repo cache: %w", err)
	}

	var repos []github.Repo
	if err := json.Unmarshal(raw, &repos); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached repos: %w", err)
	}
	return repos, true, nil
}

func (c *RedisRepoCache) Set(ctx context.Context, username string, repos []github.Repo) error {
	raw, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("failed to encode repos: %w", err)
	}
	if err := c.rdb.Set(ctx, githubReposKey(username), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write repo cache: %w", err)
	}
	return nil
}

func (c *RedisRepoCache) Delete(ctx context.Context, username string) error {
	if err := c.rdb.Del(ctx, githubReposKey(username)).Err(); err != nil {
		return fmt.Errorf("failed to evict repo cache: %w", err)
	}
	return nil
}
