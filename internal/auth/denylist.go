package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenyList is the optional early-revocation store. Entries are keyed by
// token id with a TTL aligned to the token's natural expiry, so the list
// cleans itself up. When Redis is not configured, logout stays a pure
// client-side cookie deletion.
type RedisDenyList struct {
	client *redis.Client
}

// NewRedisDenyList connects to Redis and verifies the connection.
func NewRedisDenyList(redisURL string) (*RedisDenyList, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisDenyList{client: client}, nil
}

func denyKey(jti string) string {
	return "session:denied:" + jti
}

// Deny marks a session id as revoked until the token would have expired.
func (d *RedisDenyList) Deny(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	if err := d.client.Set(ctx, denyKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("deny session %s: %w", jti, err)
	}
	return nil
}

// IsDenied implements DenyListChecker.
func (d *RedisDenyList) IsDenied(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check denied session %s: %w", jti, err)
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (d *RedisDenyList) Close() error {
	return d.client.Close()
}
