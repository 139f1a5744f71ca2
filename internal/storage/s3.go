package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes the S3 endpoint shared by every bucket.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
}

// NewClient builds a MinIO client for cfg.
func NewClient(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return client, nil
}

// S3Bucket is an ObjectStore backed by one S3 bucket with anonymous read access.
type S3Bucket struct {
	client  *minio.Client
	bucket  string
	baseURL string

	ensureOnce sync.Once
	ensureErr  error
}

// NewS3Bucket wraps bucket on client. baseURL prefixes public object URLs.
func NewS3Bucket(client *minio.Client, bucket, baseURL string) *S3Bucket {
	return &S3Bucket{
		client:  client,
		bucket:  strings.TrimSpace(bucket),
		baseURL: baseURL,
	}
}

// NewBuckets builds the photos, avatars and verification buckets on one client.
func NewBuckets(client *minio.Client, baseURL, photos, avatars, verification string) Buckets {
	return Buckets{
		Photos:       NewS3Bucket(client, photos, baseURL),
		Avatars:      NewS3Bucket(client, avatars, baseURL),
		Verification: NewS3Bucket(client, verification, baseURL),
	}
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["%s"],"Resource":["arn:aws:s3:::%s/*"]}]}`,
		"s3:GetObject", bucket)
}

// EnsureBucket creates the bucket with a public-read policy on first use.
func (s *S3Bucket) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if s.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = err
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.ensureErr = err
			return
		}
		s.ensureErr = s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket))
	})

	if s.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", s.bucket, s.ensureErr)
	}

	return nil
}

// Put uploads body under key.
func (s *S3Bucket) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if key == "" || body == nil || size <= 0 {
		return ErrInvalidObject
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return fmt.Errorf("put object to s3: %w", err)
	}

	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *S3Bucket) Delete(ctx context.Context, key string) error {
	if s.client == nil || key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PublicURL returns the anonymous URL of key.
func (s *S3Bucket) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return joinURL(s.baseURL, s.bucket, key)
}

// Name returns the bucket name.
func (s *S3Bucket) Name() string {
	return s.bucket
}
