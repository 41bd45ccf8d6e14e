package database

import "sync"

// memDatabase is an in-process map-backed Database, used by tests and by
// storage.OpenMemory for nodes that don't need persistence (e.g. ephemeral
// load-test harnesses).
type memDatabase struct {
	mu sync.RWMutex
	db map[string][]byte
}

func NewMemDatabase() Database {
	return &memDatabase{db: make(map[string][]byte)}
}

func (m *memDatabase) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.db[string(key)] = cp
	return nil
}

func (m *memDatabase) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.db[string(key)]
	return ok, nil
}

func (m *memDatabase) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.db[string(key)]
	if !ok {
		return nil, errNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memDatabase) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.db, string(key))
	return nil
}

func (m *memDatabase) Close() {}

func (m *memDatabase) Type() DBType { return MemoryDB }

func (m *memDatabase) Meter(prefix string) {}

func (m *memDatabase) NewBatch() Batch {
	return &memBatch{parent: m, writes: make(map[string][]byte)}
}

type memBatch struct {
	parent *memDatabase
	writes map[string][]byte
	size   int
}

func (b *memBatch) Put(key, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	b.writes[string(key)] = cp
	b.size += len(value)
	return nil
}

func (b *memBatch) Write() error {
	b.parent.mu.Lock()
	defer b.parent.mu.Unlock()
	for k, v := range b.writes {
		b.parent.db[k] = v
	}
	return nil
}

func (b *memBatch) ValueSize() int { return b.size }

func (b *memBatch) Reset() {
	b.writes = make(map[string][]byte)
	b.size = 0
}
