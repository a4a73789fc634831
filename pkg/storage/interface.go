package storage

import (
	"context"
	"errors"
	"time"

	"github.com/takutakahashi/authclient/pkg/credentials"
)

// ErrNotFound is returned when no credentials are stored for a profile
var ErrNotFound = errors.New("credentials not found")

// Record is the persisted form of a credential pair
type Record struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewRecord creates a record for pair stamped with the current time
func NewRecord(pair credentials.Pair) *Record {
	return &Record{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Pair returns the credential pair held by the record
func (r *Record) Pair() credentials.Pair {
	return credentials.Pair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

// Storage defines the interface for credential persistence.
// Records are keyed by profile name.
type Storage interface {
	// Save persists the record for profile, replacing any previous one
	Save(ctx context.Context, profile string, record *Record) error

	// Load retrieves the record for profile or ErrNotFound
	Load(ctx context.Context, profile string) (*Record, error)

	// Delete removes the record for profile; deleting a missing record is not an error
	Delete(ctx context.Context, profile string) error

	// Profiles lists the stored profile names
	Profiles(ctx context.Context) ([]string, error)

	// Close cleans up any resources
	Close() error
}

// StorageConfig holds configuration for storage backends
type StorageConfig struct {
	Type string `json:"type" mapstructure:"type"` // "memory", "file", "redis", "s3"

	// File storage config
	FilePath string `json:"file_path,omitempty" mapstructure:"file_path"`

	// Redis storage config
	RedisAddr     string `json:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db,omitempty" mapstructure:"redis_db"`

	// S3 storage config
	S3Bucket    string `json:"s3_bucket,omitempty" mapstructure:"s3_bucket"`
	S3Region    string `json:"s3_region,omitempty" mapstructure:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint,omitempty" mapstructure:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key,omitempty" mapstructure:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key,omitempty" mapstructure:"s3_secret_key"`

	// Prefix namespaces Redis keys and S3 object keys
	Prefix string `json:"prefix,omitempty" mapstructure:"prefix"`
}

// EncryptionConfig selects how tokens are encrypted at rest
type EncryptionConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Passphrase string `json:"passphrase,omitempty" mapstructure:"passphrase"`
	KMSKeyID   string `json:"kms_key_id,omitempty" mapstructure:"kms_key_id"`
	KMSRegion  string `json:"kms_region,omitempty" mapstructure:"kms_region"`
}
