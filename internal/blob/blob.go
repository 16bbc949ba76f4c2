// Package blob stores backup snapshots behind a small S3-like interface with
// filesystem, in-memory and S3 drivers.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a blob storage backend.
type Driver string

const (
	// DriverFilesystem stores blobs as files under a root directory.
	DriverFilesystem Driver = "fs"
	// DriverMemory keeps blobs in process memory (tests, dry runs).
	DriverMemory Driver = "memory"
	// DriverS3 stores blobs in an S3 or MinIO compatible bucket.
	DriverS3 Driver = "s3"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("blob already exists")
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is the blob backend used for backups. Put is create-only.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
