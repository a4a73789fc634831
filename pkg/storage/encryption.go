package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// encryptedPrefix marks a token value stored encrypted
const encryptedPrefix = "ENC:"

// Cipher encrypts token values at rest
type Cipher interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Algorithm() string
}

// AESCipher is AES-256-GCM keyed by the SHA-256 of a passphrase
type AESCipher struct {
	aead cipher.AEAD
}

// NewAESCipher derives the key from passphrase
func NewAESCipher(passphrase string) (*AESCipher, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("encryption passphrase is required")
	}

	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &AESCipher{aead: aead}, nil
}

// Encrypt returns nonce||ciphertext
func (c *AESCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt
func (c *AESCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	size := c.aead.NonceSize()
	if len(ciphertext) < size {
		return nil, fmt.Errorf("ciphertext too short")
	}
	plaintext, err := c.aead.Open(nil, ciphertext[:size], ciphertext[size:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// Algorithm returns "aes-256-gcm"
func (c *AESCipher) Algorithm() string {
	return "aes-256-gcm"
}

// KMSAPI is the subset of the KMS client used by KMSCipher
type KMSAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSCipher encrypts with an AWS KMS key
type KMSCipher struct {
	client KMSAPI
	keyID  string
}

// NewKMSCipherWithClient creates a KMS cipher over an existing client
func NewKMSCipherWithClient(client KMSAPI, keyID string) *KMSCipher {
	return &KMSCipher{client: client, keyID: keyID}
}

// NewKMSCipher loads the default AWS configuration for region
func NewKMSCipher(ctx context.Context, keyID, region string) (*KMSCipher, error) {
	if keyID == "" {
		return nil, fmt.Errorf("KMS key ID is required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewKMSCipherWithClient(kms.NewFromConfig(cfg), keyID), nil
}

// Encrypt calls KMS Encrypt
func (c *KMSCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	out, err := c.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(c.keyID),
		Plaintext: plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS encryption failed: %w", err)
	}
	return out.CiphertextBlob, nil
}

// Decrypt calls KMS Decrypt; the key is taken from the ciphertext
func (c *KMSCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	out, err := c.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS decryption failed: %w", err)
	}
	return out.Plaintext, nil
}

// Algorithm returns "aws-kms"
func (c *KMSCipher) Algorithm() string {
	return "aws-kms"
}

// EncryptedStorage encrypts both tokens of every record before handing it
// to the wrapped backend
type EncryptedStorage struct {
	Storage
	cipher Cipher
}

// NewEncryptedStorage wraps backend with cipher
func NewEncryptedStorage(backend Storage, c Cipher) *EncryptedStorage {
	return &EncryptedStorage{Storage: backend, cipher: c}
}

// Save encrypts the record's tokens and saves it
func (e *EncryptedStorage) Save(ctx context.Context, profile string, record *Record) error {
	if err := validate(profile, record); err != nil {
		return err
	}

	sealed := *record
	var err error
	if sealed.AccessToken, err = e.seal(ctx, record.AccessToken); err != nil {
		return err
	}
	if sealed.RefreshToken, err = e.seal(ctx, record.RefreshToken); err != nil {
		return err
	}
	return e.Storage.Save(ctx, profile, &sealed)
}

// Load loads the record and decrypts its tokens.
// Values without the encrypted marker are returned as stored.
func (e *EncryptedStorage) Load(ctx context.Context, profile string) (*Record, error) {
	record, err := e.Storage.Load(ctx, profile)
	if err != nil {
		return nil, err
	}

	opened := *record
	if opened.AccessToken, err = e.open(ctx, record.AccessToken); err != nil {
		return nil, err
	}
	if opened.RefreshToken, err = e.open(ctx, record.RefreshToken); err != nil {
		return nil, err
	}
	return &opened, nil
}

func (e *EncryptedStorage) seal(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	ciphertext, err := e.cipher.Encrypt(ctx, []byte(value))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (e *EncryptedStorage) open(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}
	plaintext, err := e.cipher.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return string(plaintext), nil
}

// NewCipher builds the cipher selected by cfg: KMS when a key ID is set,
// otherwise AES from the passphrase
func NewCipher(ctx context.Context, cfg EncryptionConfig) (Cipher, error) {
	if cfg.KMSKeyID != "" {
		return NewKMSCipher(ctx, cfg.KMSKeyID, cfg.KMSRegion)
	}
	return NewAESCipher(cfg.Passphrase)
}
