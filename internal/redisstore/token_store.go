// Package redisstore keeps unlock tokens in Redis. Consumption runs as a Lua
// script so the check and the write happen atomically on the server.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

// Retention keeps expired tokens around long enough to report "expired"
// rather than "not found".
const Retention = 24 * time.Hour

var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'resource_id', ARGV[1], 'email', ARGV[2], 'name', ARGV[3], 'organization', ARGV[4],
  'created_at', ARGV[5], 'expires_at', ARGV[6])
redis.call('PEXPIREAT', KEYS[1], ARGV[7])
redis.call('ZADD', KEYS[2], ARGV[6], ARGV[8])
return 1
`)

var consumeScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'resource_id', 'expires_at', 'consumed_at')
if not v[1] or v[1] ~= ARGV[1] then
  return 0
end
if v[3] then
  return 0
end
if tonumber(v[2]) <= tonumber(ARGV[2]) then
  return 0
end
redis.call('HSET', KEYS[1], 'consumed_at', ARGV[2])
return 1
`)

type TokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore uses keys below prefix ("addonware" when empty).
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	if prefix == "" {
		prefix = "addonware"
	}
	return &TokenStore{client: client, prefix: prefix}
}

// Open parses a redis:// URL and checks the connection.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *TokenStore) key(hash string) string { return s.prefix + ":unlock:token:" + hash }

func (s *TokenStore) expiryIndex() string { return s.prefix + ":unlock:expiry" }

func (s *TokenStore) InsertToken(ctx context.Context, t *models.UnlockToken) error {
	expires := t.ExpiresAt.UnixMilli()
	n, err := insertScript.Run(ctx, s.client,
		[]string{s.key(t.TokenHash), s.expiryIndex()},
		t.ResourceID, t.Email, t.Name, t.Organization,
		t.CreatedAt.UnixMilli(), expires, t.ExpiresAt.Add(Retention).UnixMilli(), t.TokenHash,
	).Int()
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	if n == 0 {
		return services.ErrDuplicateToken
	}
	return nil
}

func (s *TokenStore) GetTokenByHash(ctx context.Context, hash string) (*models.UnlockToken, error) {
	m, err := s.client.HGetAll(ctx, s.key(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	t := &models.UnlockToken{
		TokenHash:    hash,
		ResourceID:   m["resource_id"],
		Email:        m["email"],
		Name:         m["name"],
		Organization: m["organization"],
	}
	if t.CreatedAt, err = parseMillis(m["created_at"]); err != nil {
		return nil, err
	}
	if t.ExpiresAt, err = parseMillis(m["expires_at"]); err != nil {
		return nil, err
	}
	if v, ok := m["consumed_at"]; ok {
		at, err := parseMillis(v)
		if err != nil {
			return nil, err
		}
		t.ConsumedAt = &at
	}
	return t, nil
}

func parseMillis(v string) (time.Time, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", v, err)
	}
	return time.UnixMilli(n).UTC(), nil
}

func (s *TokenStore) ConsumeToken(ctx context.Context, hash, resourceID string, now time.Time) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{s.key(hash)}, resourceID, now.UnixMilli()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return n == 1, nil
}

func (s *TokenStore) DeleteToken(ctx context.Context, hash string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(hash))
	pipe.ZRem(ctx, s.expiryIndex(), hash)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// PurgeExpiredTokens removes tokens whose expiry has passed, without waiting
// for the key TTL.
func (s *TokenStore) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	hashes, err := s.client.ZRangeByScore(ctx, s.expiryIndex(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list expired tokens: %w", err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(hashes))
	members := make([]any, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, s.key(h))
		members = append(members, h)
	}
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, s.expiryIndex(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return del.Val(), nil
}
