package assetcache

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Storage holds cache generations. Put replaces any entry under the same key.
// Implementations must be safe for concurrent use.
type Storage interface {
	Put(ctx context.Context, generation, key string, r Response) error
	Get(ctx context.Context, generation, key string) (Response, bool, error)
	Keys(ctx context.Context, generation string) ([]string, error)
	Generations(ctx context.Context) ([]string, error)
	DeleteGeneration(ctx context.Context, generation string) error
	SetActive(ctx context.Context, generation string) error
	Active(ctx context.Context) (string, bool, error)
}

var _ Storage = (*MemoryStorage)(nil)

type MemoryStorage struct {
	mu     sync.RWMutex
	gens   map[string]map[string]Response
	active string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{gens: map[string]map[string]Response{}}
}

func (m *MemoryStorage) Put(_ context.Context, gen, key string, r Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gens[gen]
	if !ok {
		g = map[string]Response{}
		m.gens[gen] = g
	}
	r.Body = slices.Clone(r.Body)
	r.Header = r.Header.Clone()
	g[key] = r
	return nil
}

func (m *MemoryStorage) Get(_ context.Context, gen, key string) (Response, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.gens[gen][key]
	if !ok {
		return Response{}, false, nil
	}
	r.Body = slices.Clone(r.Body)
	r.Header = r.Header.Clone()
	return r, true, nil
}

func (m *MemoryStorage) Keys(_ context.Context, gen string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.gens[gen])), nil
}

func (m *MemoryStorage) Generations(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.gens)), nil
}

func (m *MemoryStorage) DeleteGeneration(_ context.Context, gen string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.gens, gen)
	if m.active == gen {
		m.active = ""
	}
	return nil
}

func (m *MemoryStorage) SetActive(_ context.Context, gen string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = gen
	return nil
}

func (m *MemoryStorage) Active(context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, m.active != "", nil
}
