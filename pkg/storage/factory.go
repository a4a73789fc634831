package storage

import (
	"context"
	"fmt"
)

// NewStorage creates a storage instance based on the configuration
func NewStorage(ctx context.Context, cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStorage(), nil

	case "file":
		return NewFileStorage(cfg.FilePath)

	case "redis":
		return DialRedisStorage(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Prefix)

	case "s3":
		return NewS3Storage(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// Open creates the configured backend, wrapped for encryption when enabled
func Open(ctx context.Context, cfg StorageConfig, enc EncryptionConfig) (Storage, error) {
	backend, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !enc.Enabled {
		return backend, nil
	}

	c, err := NewCipher(ctx, enc)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return NewEncryptedStorage(backend, c), nil
}
