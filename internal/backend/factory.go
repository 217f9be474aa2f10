package backend

import (
	"context"
	"fmt"

	applog "eventledger/internal/log"
	"eventledger/internal/remote/memory"
	"eventledger/internal/remote/redisstore"
	"eventledger/internal/remote/s3store"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case NoneBackend:
		f.logger.Info("Remote sync disabled", applog.FieldBackend, config.Type.String())
		return &BackendResult{}, nil
	case MemoryBackend:
		return f.createMemoryBackend()
	case S3Backend:
		return f.createS3Backend(ctx, config)
	case RedisBackend:
		return f.createRedisBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Using in-process memory backend; remote data is lost on exit",
		applog.FieldBackend, MemoryBackend.String())
	return &BackendResult{Store: memory.New()}, nil
}

func (f *DefaultFactory) createS3Backend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := s3store.New(ctx, s3store.Config{
		Bucket:   config.S3Bucket,
		Region:   config.S3Region,
		Endpoint: config.S3Endpoint,
		Prefix:   config.S3Prefix,
		Key:      config.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 backend: %w", err)
	}

	f.logger.Info("Initialized S3 backend",
		applog.FieldBackend, S3Backend.String(),
		"bucket", config.S3Bucket,
		"endpoint", config.S3Endpoint)

	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createRedisBackend(config Config) (*BackendResult, error) {
	store := redisstore.New(config.RedisAddr, config.RedisPassword, config.RedisDB, config.Key)

	f.logger.Info("Initialized Redis backend",
		applog.FieldBackend, RedisBackend.String(),
		"addr", config.RedisAddr,
		"db", config.RedisDB)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}
