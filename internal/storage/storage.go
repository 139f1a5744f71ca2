// Package storage stores uploaded images in S3-compatible buckets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidObject is returned for an empty key, missing body or zero size.
var ErrInvalidObject = errors.New("invalid object")

// ObjectStore is one bucket of public objects.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	EnsureBucket(ctx context.Context) error
}

// Buckets groups the stores used by the application.
type Buckets struct {
	Photos       ObjectStore
	Avatars      ObjectStore
	Verification ObjectStore
}

// EnsureAll creates any missing bucket.
func (b Buckets) EnsureAll(ctx context.Context) error {
	for _, store := range []ObjectStore{b.Photos, b.Avatars, b.Verification} {
		if store == nil {
			continue
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ObjectKey builds "<kind>/<user_id>/<uuid>.<ext>".
func ObjectKey(kind string, userID uint, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return path.Join(kind, fmt.Sprintf("%d", userID), uuid.NewString()+"."+ext)
}

// ExtensionFor maps an image content type to a file extension.
func ExtensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	return "bin"
}

func joinURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}
