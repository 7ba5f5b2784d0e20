package store

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a thread-safe, in-memory Store backed by a simple map.
// Useful for unit tests and short-lived processes.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte // key -> JSON bytes
}

// NewMemoryStore creates a ready-to-use in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// ---------- CRUD ----------

func (m *MemoryStore) Create(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; exists {
		return ErrAlreadyExists
	}
	m.data[key] = raw
	return nil
}

func (m *MemoryStore) Get(key string, target interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.data[key]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, target)
}

func (m *MemoryStore) Update(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		return ErrNotFound
	}
	m.data[key] = raw
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		return ErrNotFound
	}
	delete(m.data, key)
	return nil
}

// ---------- List ----------

func (m *MemoryStore) List(prefix string, factory func() interface{}) ([]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var results []interface{}
	for _, k := range keys {
		obj := factory()
		if err := json.Unmarshal(m.data[k], obj); err != nil {
			return nil, err
		}
		results = append(results, obj)
	}
	return results, nil
}

// ---------- Close ----------

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}
