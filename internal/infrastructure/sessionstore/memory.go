package sessionstore

import (
	"context"
	"sync"
)

// MemoryProvider 以記憶體實作 Provider；作為分頁範圍儲存
// （隨程序結束消失），也是未設定 Redis 時跨分頁儲存的替代。
type MemoryProvider struct {
	mu     sync.RWMutex
	spaces map[string]map[string]string
}

// NewMemoryProvider 建立記憶體儲存。
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{spaces: make(map[string]map[string]string)}
}

// Namespace 回傳指定命名空間的 Store 視圖。
func (p *MemoryProvider) Namespace(id string) Store {
	return &memoryStore{provider: p, ns: id}
}

// DropNamespace 整個移除命名空間（client 斷線清理用）。
func (p *MemoryProvider) DropNamespace(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.spaces, id)
}

type memoryStore struct {
	provider *MemoryProvider
	ns       string
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()
	space, ok := s.provider.spaces[s.ns]
	if !ok {
		return "", false, nil
	}
	v, ok := space[key]
	return v, ok, nil
}

func (s *memoryStore) Set(ctx context.Context, key, value string) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	space, ok := s.provider.spaces[s.ns]
	if !ok {
		space = make(map[string]string)
		s.provider.spaces[s.ns] = space
	}
	space[key] = value
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	if space, ok := s.provider.spaces[s.ns]; ok {
		delete(space, key)
	}
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	delete(s.provider.spaces, s.ns)
	return nil
}
