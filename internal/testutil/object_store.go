package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-memory storage.ObjectStore.
type MemoryStore struct {
	Bucket string

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	// FailPutAfter makes every Put after the first n successful ones fail. Negative disables.
	FailPutAfter int
	puts         int
}

// NewMemoryStore returns an empty store named bucket.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		Bucket:       bucket,
		objects:      make(map[string][]byte),
		types:        make(map[string]string),
		FailPutAfter: -1,
	}
}

// Put stores the body under key.
func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPutAfter >= 0 && m.puts >= m.FailPutAfter {
		return errors.New("memory store: injected put failure")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.puts++
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

// PublicURL returns a fake URL for key.
func (m *MemoryStore) PublicURL(key string) string {
	return fmt.Sprintf("https://cdn.test/%s/%s", m.Bucket, key)
}

// EnsureBucket is a no-op.
func (m *MemoryStore) EnsureBucket(context.Context) error {
	return nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// ContentType returns the stored content type of key.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[key]
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
