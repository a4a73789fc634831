package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takutakahashi/authclient/pkg/credentials"
)

// testStorageInterface runs the behaviour every backend must share
func testStorageInterface(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "default")
	assert.True(t, errors.Is(err, ErrNotFound))

	record := &Record{AccessToken: "a1", RefreshToken: "r1", UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.Save(ctx, "default", record))
	require.NoError(t, s.Save(ctx, "staging", &Record{AccessToken: "a9", RefreshToken: "r9"}))

	loaded, err := s.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "a1", loaded.AccessToken)
	assert.Equal(t, "r1", loaded.RefreshToken)
	assert.True(t, record.UpdatedAt.Equal(loaded.UpdatedAt))

	require.NoError(t, s.Save(ctx, "default", &Record{AccessToken: "a2", RefreshToken: "r2"}))
	loaded, err = s.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, credentials.Pair{AccessToken: "a2", RefreshToken: "r2"}, loaded.Pair())

	profiles, err := s.Profiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "staging"}, profiles)

	require.NoError(t, s.Delete(ctx, "default"))
	require.NoError(t, s.Delete(ctx, "default"))
	_, err = s.Load(ctx, "default")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, s.Save(ctx, "", record))
	assert.Error(t, s.Save(ctx, "x", nil))
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	defer func() { _ = s.Close() }()
	testStorageInterface(t, s)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	record := &Record{AccessToken: "a1"}
	require.NoError(t, s.Save(ctx, "default", record))
	record.AccessToken = "mutated"

	loaded, err := s.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "a1", loaded.AccessToken)
}

func TestFileStorage(t *testing.T) {
	s, err := NewFileStorage(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, err)
	testStorageInterface(t, s)
}

func TestFileStorage_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	s, err := NewFileStorage(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), "default", &Record{AccessToken: "a1"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStorage_CorruptFileReadsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0600))

	s, err := NewFileStorage(path)
	require.NoError(t, err)

	_, err = s.Load(ctx, "default")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Save(ctx, "default", &Record{AccessToken: "a1"}))
	loaded, err := s.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "a1", loaded.AccessToken)
}

func TestFileStorage_SharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	first, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "default", &Record{AccessToken: "a1", RefreshToken: "r1"}))

	second, err := NewFileStorage(path)
	require.NoError(t, err)
	loaded, err := second.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "r1", loaded.RefreshToken)
}

func TestNewFileStorage_RequiresPath(t *testing.T) {
	_, err := NewFileStorage("")
	assert.Error(t, err)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, rdb
}

func TestRedisStorage(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStorage(rdb, "test:")
	defer func() { _ = s.Close() }()

	testStorageInterface(t, s)
}

func TestRedisStorage_KeyLayout(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStorage(rdb, "")
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Save(context.Background(), "default", &Record{AccessToken: "a1"}))

	raw, err := mr.Get(defaultRedisPrefix + "default")
	require.NoError(t, err)
	assert.Contains(t, raw, `"accessToken":"a1"`)
	assert.Equal(t, time.Duration(0), mr.TTL(defaultRedisPrefix+"default"))
}

func TestDialRedisStorage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := DialRedisStorage(context.Background(), mr.Addr(), "", 0, "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = DialRedisStorage(context.Background(), "", "", 0, "")
	assert.Error(t, err)
}

func TestEncryptedStorage(t *testing.T) {
	c, err := NewAESCipher("correct horse battery staple")
	require.NoError(t, err)

	testStorageInterface(t, NewEncryptedStorage(NewMemoryStorage(), c))
}

func TestEncryptedStorage_TokensAreNotStoredInClear(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStorage()
	c, err := NewAESCipher("passphrase")
	require.NoError(t, err)
	s := NewEncryptedStorage(backend, c)

	require.NoError(t, s.Save(ctx, "default", &Record{AccessToken: "a1", RefreshToken: "r1"}))

	raw, err := backend.Load(ctx, "default")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw.AccessToken, encryptedPrefix))
	assert.True(t, strings.HasPrefix(raw.RefreshToken, encryptedPrefix))
	assert.NotContains(t, raw.AccessToken, "a1")

	other, err := NewAESCipher("wrong")
	require.NoError(t, err)
	_, err = NewEncryptedStorage(backend, other).Load(ctx, "default")
	assert.Error(t, err)
}

func TestEncryptedStorage_PlainValuesPassThrough(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStorage()
	require.NoError(t, backend.Save(ctx, "default", &Record{AccessToken: "legacy"}))

	c, err := NewAESCipher("passphrase")
	require.NoError(t, err)

	loaded, err := NewEncryptedStorage(backend, c).Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "legacy", loaded.AccessToken)
}

func TestNewAESCipher_RequiresPassphrase(t *testing.T) {
	_, err := NewAESCipher("")
	assert.Error(t, err)
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()

	s, err := NewStorage(ctx, StorageConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	s, err = NewStorage(ctx, StorageConfig{Type: "file", FilePath: filepath.Join(t.TempDir(), "c.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	s, err = NewStorage(ctx, StorageConfig{Type: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStorage{}, s)
	_ = s.Close()

	_, err = NewStorage(ctx, StorageConfig{Type: "sqlite"})
	assert.Error(t, err)

	_, err = NewStorage(ctx, StorageConfig{Type: "s3"})
	assert.Error(t, err, "bucket is required")
}

func TestOpen_Encrypted(t *testing.T) {
	s, err := Open(context.Background(), StorageConfig{Type: "memory"}, EncryptionConfig{Enabled: true, Passphrase: "p"})
	require.NoError(t, err)
	assert.IsType(t, &EncryptedStorage{}, s)

	_, err = Open(context.Background(), StorageConfig{Type: "memory"}, EncryptionConfig{Enabled: true})
	assert.Error(t, err)
}
