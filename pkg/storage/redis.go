package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "authclient:credentials:"

// RedisStorage stores each profile as a JSON string under prefix+profile
type RedisStorage struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisStorage wraps an existing client
func NewRedisStorage(rdb goredis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStorage{rdb: rdb, prefix: prefix}
}

// DialRedisStorage connects to addr and verifies the connection
func DialRedisStorage(ctx context.Context, addr, password string, db int, prefix string) (*RedisStorage, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStorage(rdb, prefix), nil
}

func (r *RedisStorage) key(profile string) string {
	return r.prefix + profile
}

// Save stores the record without expiry
func (r *RedisStorage) Save(ctx context.Context, profile string, record *Record) error {
	if err := validate(profile, record); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(profile), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save credentials to redis: %w", err)
	}
	return nil
}

// Load retrieves the record for profile
func (r *RedisStorage) Load(ctx context.Context, profile string) (*Record, error) {
	data, err := r.rdb.Get(ctx, r.key(profile)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials from redis: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}

// Delete removes the record for profile
func (r *RedisStorage) Delete(ctx context.Context, profile string) error {
	if err := r.rdb.Del(ctx, r.key(profile)).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials from redis: %w", err)
	}
	return nil
}

// Profiles scans the key space under the prefix
func (r *RedisStorage) Profiles(ctx context.Context) ([]string, error) {
	var profiles []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		profiles = append(profiles, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list profiles in redis: %w", err)
	}
	sort.Strings(profiles)
	return profiles, nil
}

// Close closes the underlying client
func (r *RedisStorage) Close() error {
	return r.rdb.Close()
}
