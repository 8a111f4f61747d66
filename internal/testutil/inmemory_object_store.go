package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// StoredObject is one object held by InMemoryObjectStore.
type StoredObject struct {
	Data        []byte
	ContentType string
}

// InMemoryObjectStore implements storage.Store in memory.
type InMemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]StoredObject

	// BaseURL prefixes keys returned by URL.
	BaseURL string
	// FailPut, when set, is returned by Put.
	FailPut error
}

// NewInMemoryObjectStore creates an empty store serving URLs below baseURL.
func NewInMemoryObjectStore(baseURL string) *InMemoryObjectStore {
	return &InMemoryObjectStore{objects: make(map[string]StoredObject), BaseURL: baseURL}
}

func (s *InMemoryObjectStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if s.FailPut != nil {
		return s.FailPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = StoredObject{Data: data, ContentType: contentType}
	return nil
}

func (s *InMemoryObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *InMemoryObjectStore) URL(_ context.Context, key string) (string, error) {
	return fmt.Sprintf("%s/%s", s.BaseURL, key), nil
}

// Get returns the object stored under key.
func (s *InMemoryObjectStore) Get(key string) (StoredObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored objects.
func (s *InMemoryObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
