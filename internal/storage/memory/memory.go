package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/princeprakhar/travel-review-backend/internal/storage"
)

type object struct {
	ContentType string
	OwnerID     string
	Data        []byte
}

// Storage implements storage.Storage in process memory. It backs local
// development (STORAGE_DRIVER=memory) and tests.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]*object
	bucket  string
	host    string

	// FailDelete, when set, is returned by Delete for matching keys.
	FailDelete func(key string) error
}

func New(bucket, host string) *Storage {
	return &Storage{
		objects: make(map[string]*object),
		bucket:  bucket,
		host:    host,
	}
}

func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[input.Key] = &object{
		ContentType: input.ContentType,
		OwnerID:     input.OwnerID,
		Data:        data,
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: storage.ObjectURL(s.bucket, s.host, input.Key),
	}, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	if s.FailDelete != nil {
		if err := s.FailDelete(key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

func (s *Storage) KeyFromURL(rawURL string) (string, error) {
	return storage.KeyFromURL(s.bucket, s.host, rawURL)
}

// Has reports whether key is stored.
func (s *Storage) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Owner returns the owner tag recorded for key.
func (s *Storage) Owner(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if obj, ok := s.objects[key]; ok {
		return obj.OwnerID
	}
	return ""
}

// Len returns the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
