package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/storage"
)

// storedObject remembers an upload so a failed operation can remove it again.
type storedObject struct {
	store storage.ObjectStore
	key   string
}

// putObject stores data under a fresh key for userID and returns the key and its
// public URL.
func putObject(ctx context.Context, store storage.ObjectStore, kind string, userID uint, data []byte, contentType string) (string, string, error) {
	if store == nil {
		return "", "", models.NewInternalError(fmt.Errorf("%s storage not configured", kind))
	}
	key := storage.ObjectKey(kind, userID, storage.ExtensionFor(contentType))
	if err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", "", models.NewInternalError(fmt.Errorf("store %s object: %w", kind, err))
	}
	return key, store.PublicURL(key), nil
}

// removeObjects deletes what it can. Orphans are logged, never returned.
func removeObjects(ctx context.Context, objects ...storedObject) {
	for _, o := range objects {
		if o.store == nil || o.key == "" {
			continue
		}
		if err := o.store.Delete(ctx, o.key); err != nil {
			middleware.Logger.WarnContext(ctx, "orphaned stored object",
				slog.String("key", o.key),
				slog.String("error", err.Error()),
			)
		}
	}
}
