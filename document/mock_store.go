package document

import (
	"context"
	"sync"
)

// MockStore is an in-memory ObjectStore for tests and local development.
type MockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error

	PutCalls    int
	DeleteCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{objects: make(map[string][]byte)}
}

// SetError makes every subsequent call fail with err.
func (m *MockStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.err != nil {
		return m.err
	}
	m.objects[key] = append([]byte(nil), body...)
	return nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.err != nil {
		return m.err
	}
	delete(m.objects, key)
	return nil
}

// Has reports whether the key currently holds an object.
func (m *MockStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
