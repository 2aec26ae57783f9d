package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/quicktools/file-processor/pkg/logger"
	"github.com/quicktools/file-processor/pkg/storage/minio"
	"github.com/quicktools/file-processor/pkg/storage/s3"
)

// StorageType selects the object-store backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Key prefixes partition the bucket by object role.
const (
	PrefixUpload   = "uploads/"
	PrefixResult   = "results/"
	PrefixManifest = "manifests/"
)

// UploadKey returns the object key for a task's input file. The index
// distinguishes additional inputs of multi-file tools.
func UploadKey(taskID string, index int) string {
	if index == 0 {
		return fmt.Sprintf("%s%s", PrefixUpload, taskID)
	}
	return fmt.Sprintf("%s%s-%d", PrefixUpload, taskID, index)
}

// ResultKey returns the object key for a task's processed output.
func ResultKey(taskID string) string {
	return PrefixResult + taskID
}

// ManifestKey returns the object key for a task's result manifest.
func ManifestKey(taskID string) string {
	return PrefixManifest + taskID + ".json"
}

// Storage is the object-store boundary for inputs, results and manifests.
type Storage interface {
	// Store writes the reader's content under key with the given content type.
	Store(ctx context.Context, reader io.Reader, key, contentType string) (string, error)
	// Get opens the object at key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes objects last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage creates a storage backend of the given type.
func NewStorage(storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(log)
	case StorageTypeMinio:
		return minio.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// GetStorage builds the backend selected by $STORAGE_BACKEND, defaulting to
// MinIO for local development.
func GetStorage(log logger.Logger) (Storage, error) {
	backend := StorageType(os.Getenv("STORAGE_BACKEND"))
	if backend == "" {
		backend = StorageTypeMinio
	}
	return NewStorage(backend, log)
}

// ReadAll fetches the object at key fully into memory.
func ReadAll(ctx context.Context, s Storage, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}
