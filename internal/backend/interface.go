// Package backend builds the remote ledger store selected by configuration.
package backend

import (
	"context"

	"eventledger/internal/remote"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the remote store and optional cleanup function.
// Store is nil when the remote backend is "none".
type BackendResult struct {
	Store   remote.LedgerStore
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Document key shared by all backends
	Key string

	// S3 specific
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	// Redis specific
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// BackendType represents the type of backend
type BackendType string

const (
	NoneBackend   BackendType = "none"
	MemoryBackend BackendType = "memory"
	S3Backend     BackendType = "s3"
	RedisBackend  BackendType = "redis"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case NoneBackend, MemoryBackend, S3Backend, RedisBackend:
		return true
	default:
		return false
	}
}
