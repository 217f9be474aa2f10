// Package s3store keeps the remote ledger document as a single S3 object.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"eventledger/internal/core"
	"eventledger/internal/remote"
)

// ObjectAPI is the subset of the S3 client the store needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements remote.LedgerStore on top of S3.
type Store struct {
	client ObjectAPI
	bucket string
	key    string
	now    func() time.Time
}

// Config holds configuration for Store.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (for MinIO, LocalStack, etc.)
	Prefix   string // Optional key prefix
	Key      string // Object name, remote.DefaultKey when empty
}

// New loads the default AWS configuration and returns an S3-backed store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	})

	key := cfg.Key
	if key == "" {
		key = remote.DefaultKey
	}
	return NewWithClient(client, cfg.Bucket, cfg.Prefix+key+".json"), nil
}

// NewWithClient wraps an existing client. objectKey is used verbatim.
func NewWithClient(client ObjectAPI, bucket, objectKey string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		key:    objectKey,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Get(ctx context.Context) (remote.Document, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return remote.Document{}, remote.ErrNotFound
		}
		return remote.Document{}, fmt.Errorf("s3 get failed for %s: %w", s.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return remote.Document{}, fmt.Errorf("s3 read failed for %s: %w", s.key, err)
	}
	return remote.Unmarshal(body)
}

func (s *Store) Put(ctx context.Context, l core.Ledger) (time.Time, error) {
	ts := s.now()
	body, err := remote.Marshal(remote.Document{Ledger: l, LastModified: ts})
	if err != nil {
		return time.Time{}, err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("s3 put failed for %s: %w", s.key, err)
	}
	return ts, nil
}

func (s *Store) Delete(ctx context.Context) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed for %s: %w", s.key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
