package accstore

import (
	"sync"

	"github.com/cedartrie/datrie/datrie"
)

// MemStore is an ephemeral, in-process Store, mirroring the MemDB shape
// used elsewhere in this codebase for test fixtures and short-lived
// caches.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Has(name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[name]
	return ok, nil
}

func (m *MemStore) Get(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[name]
	if !ok {
		return nil, datrie.ErrAbsentKey
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemStore) Put(name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[name] = cp
	return nil
}

func (m *MemStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

func (m *MemStore) Names() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data))
	for n := range m.data {
		names = append(names, n)
	}
	return names, nil
}

func (m *MemStore) Close() error { return nil }

// memBatch buffers writes to a MemStore.
type memBatch struct {
	host *MemStore
	puts map[string][]byte
	dels map[string]struct{}
	size int
}

func (m *MemStore) NewBatch() Batch {
	return &memBatch{
		host: m,
		puts: make(map[string][]byte),
		dels: make(map[string]struct{}),
	}
}

func (b *memBatch) Put(name string, value []byte) error {
	b.puts[name] = value
	delete(b.dels, name)
	b.size += len(name) + len(value)
	return nil
}

func (b *memBatch) Delete(name string) error {
	b.dels[name] = struct{}{}
	delete(b.puts, name)
	b.size += len(name)
	return nil
}

func (b *memBatch) ValueSize() int { return b.size }

func (b *memBatch) Submit() error {
	for n, v := range b.puts {
		if err := b.host.Put(n, v); err != nil {
			return err
		}
	}
	for n := range b.dels {
		if err := b.host.Delete(n); err != nil {
			return err
		}
	}
	b.Reset()
	return nil
}

func (b *memBatch) Reset() {
	b.puts = make(map[string][]byte)
	b.dels = make(map[string]struct{})
	b.size = 0
}
