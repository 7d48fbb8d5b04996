package session

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore implements Store in memory, for tests and demos where no
// SQLite file is wanted. Sessions are kept serialized so the store never
// aliases a live session.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[sess.ID] = buf
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	buf, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal(buf, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *MemoryStore) LoadAll(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.data))
	for _, buf := range s.data {
		var sess Session
		if err := json.Unmarshal(buf, &sess); err != nil {
			return nil, err
		}
		out = append(out, &sess)
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
	return nil
}
