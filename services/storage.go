package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ain_oman_legal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	// ErrResourceNotFound is returned by every ResourceStorage when the key was never written
	ErrResourceNotFound = errors.New("resource not found")
	ErrTenantRequired   = errors.New("tenant id is required")
)

// ResourceStorage persists whole named resources (tenant snapshots, counter maps, document blobs).
// Writes replace the previous content atomically from the reader's point of view.
// Delete of a missing key is not an error.
type ResourceStorage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// SnapshotResourceKey is where a tenant's record store snapshot lives
func SnapshotResourceKey(tenantID string) string {
	return path.Join("snapshots", keySegment(tenantID)+".json")
}

// CounterResourceKey is where a tenant's counter map lives
func CounterResourceKey(tenantID string) string {
	return path.Join("counters", keySegment(tenantID)+".json")
}

// validateTenant rejects blank tenant ids before they reach a storage key
func validateTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrTenantRequired
	}
	return nil
}

// keySegment encodes an id as lowercase hex. The mapping is one-to-one, never
// contains a path separator and survives case-insensitive filesystems.
func keySegment(id string) string {
	return hex.EncodeToString([]byte(id))
}

// NewResourceStorage builds the storage selected by cfg.StorageDriver.
// The sql drivers need an open gorm connection (see db.Open); the others ignore it.
func NewResourceStorage(cfg *config.Config, sqlStore *GormStorage) (ResourceStorage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Println("Storage connection established (in-memory)")
		return NewMemoryStorage(), nil
	case config.StorageDriverSQLite, config.StorageDriverLibSQL, config.StorageDriverPostgres:
		if sqlStore == nil {
			return nil, fmt.Errorf("storage driver %s requires a database connection", cfg.StorageDriver)
		}
		return sqlStore, nil
	case config.StorageDriverR2:
		if !cfg.R2Configured() {
			log.Printf("[WARNING] R2 credentials incomplete. Falling back to local storage.")
			return NewLocalStorage(cfg.DataDir), nil
		}
		r2, err := NewR2Storage(cfg)
		if err != nil {
			log.Printf("[WARNING] Failed to initialize R2 storage: %v. Falling back to local storage.", err)
			return NewLocalStorage(cfg.DataDir), nil
		}

		// Test R2 connection (HeadBucket)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := r2.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r2.bucket)}); err != nil {
			log.Printf("[WARNING] R2 bucket connection test failed: %v. Falling back to local storage.", err)
			return NewLocalStorage(cfg.DataDir), nil
		}

		log.Printf("Storage connection established (Cloudflare R2 - bucket: %s)", r2.bucket)
		return r2, nil
	case config.StorageDriverFile, "":
		log.Printf("Storage connection established (Local filesystem - path: %s)", cfg.DataDir)
		return NewLocalStorage(cfg.DataDir), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

// R2Storage implements ResourceStorage for Cloudflare R2
type R2Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewR2Storage creates a new R2 storage provider
func NewR2Storage(cfg *config.Config) (*R2Storage, error) {
	// R2 endpoint format: https://<account_id>.r2.cloudflarestorage.com
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)

	creds := credentials.NewStaticCredentialsProvider(
		cfg.R2AccessKeyID,
		cfg.R2SecretAccessKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion("auto"), // R2 uses "auto" region
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Storage{
		client: client,
		bucket: cfg.R2BucketName,
		prefix: strings.Trim(cfg.R2Prefix, "/"),
	}, nil
}

// Name identifies the backend in logs
func (r *R2Storage) Name() string {
	return "r2:" + r.bucket
}

func (r *R2Storage) objectKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + "/" + key
}

// Read fetches a resource object
func (r *R2Storage) Read(ctx context.Context, key string) ([]byte, error) {
	result, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to get object from R2: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object from R2: %w", err)
	}
	return data, nil
}

// Write uploads a resource object, replacing any previous version
func (r *R2Storage) Write(ctx context.Context, key string, data []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(r.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

// Delete removes a resource object. S3 treats a missing key as success.
func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

// LocalStorage implements ResourceStorage for the local filesystem
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a new local storage provider
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

// Name identifies the backend in logs
func (l *LocalStorage) Name() string {
	return "file:" + l.baseDir
}

// Read loads a resource file
func (l *LocalStorage) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.baseDir, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Write saves a resource through a temp file and rename so readers never see a partial write
func (l *LocalStorage) Write(ctx context.Context, key string, data []byte) error {
	fullPath := filepath.Join(l.baseDir, filepath.FromSlash(key))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Delete removes a resource file
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(l.baseDir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// MemoryStorage keeps resources in process memory. Used by tests and the memory driver.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Name identifies the backend in logs
func (m *MemoryStorage) Name() string {
	return "memory"
}

// Read returns a copy of the stored bytes
func (m *MemoryStorage) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, ErrResourceNotFound
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of data
func (m *MemoryStorage) Write(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// Delete drops key
func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
