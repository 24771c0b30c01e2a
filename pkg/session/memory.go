package session

import "sync"

// MemStore is an in-memory Store. State is lost on restart; it exists for
// tests and for terminals that must never persist credentials to disk.
type MemStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string][]byte)}
}

func (s *MemStore) LoadPrincipal() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.values[KeyPrincipal]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, true
}

func (s *MemStore) SavePrincipal(raw []byte) error {
	cp := make([]byte, len(raw))
	copy(cp, raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[KeyPrincipal] = cp
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, KeyPrincipal)
	delete(s.values, KeyToken)
	return nil
}

func (s *MemStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.values[KeyToken]
	if !ok || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

func (s *MemStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[KeyToken] = []byte(token)
	return nil
}

func (s *MemStore) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.values[KeyMuted]) == "true"
}

func (s *MemStore) SetMuted(muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if muted {
		s.values[KeyMuted] = []byte("true")
	} else {
		s.values[KeyMuted] = []byte("false")
	}
	return nil
}
