package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each collection under one string key.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend takes ownership of client.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "civicreport"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// Key returns the redis key of a collection.
func (b *RedisBackend) Key(collection string) string {
	return b.prefix + ":" + collection
}

// Read implements Backend.
func (b *RedisBackend) Read(ctx context.Context, collection string) ([]Record, error) {
	data, err := b.client.Get(ctx, b.Key(collection)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("get %s: %w", collection, err)
	}
	return decodeRecords(data)
}

// Write implements Backend.
func (b *RedisBackend) Write(ctx context.Context, collection string, records []Record) error {
	data, err := encodeRecords(records, false)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := b.client.Set(ctx, b.Key(collection), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", collection, err)
	}
	return nil
}

// Exists implements Backend.
func (b *RedisBackend) Exists(ctx context.Context, collection string) (bool, error) {
	n, err := b.client.Exists(ctx, b.Key(collection)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", collection, err)
	}
	return n > 0, nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
