package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrBlobNotFound indicates no image is stored under the requested key
var ErrBlobNotFound = errors.New("blob not found")

// BlobStorage keeps raw image payloads outside the database
type BlobStorage interface {
	PutImage(ctx context.Context, key string, data []byte) error
	GetImage(ctx context.Context, key string) ([]byte, error)
	DeleteImage(ctx context.Context, key string) error
}

// memoryStorage implements BlobStorage in process memory
type memoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStorage creates an empty in-memory blob storage
func NewMemoryStorage() BlobStorage {
	return &memoryStorage{blobs: make(map[string][]byte)}
}

func (s *memoryStorage) PutImage(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *memoryStorage) GetImage(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *memoryStorage) DeleteImage(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}
