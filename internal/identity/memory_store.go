package identity

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byPhone map[string][]PhoneMatch
}

// NewMemoryStore seeds a store with the given mappings. Rows whose phone does
// not normalize are skipped.
func NewMemoryStore(matches ...PhoneMatch) *MemoryStore {
	s := &MemoryStore{byPhone: make(map[string][]PhoneMatch)}
	for _, m := range matches {
		s.Add(m)
	}
	return s
}

// LoadMemoryStore reads a YAML seed file of the form:
//
//	phones:
//	  - user_id: 1
//	    email: a@example.com
//	    phone: "+15551234567"
//	    is_primary: true
func LoadMemoryStore(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read seed file: %w", err)
	}
	var seed struct {
		Phones []PhoneMatch `yaml:"phones"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("identity: decode seed file: %w", err)
	}
	return NewMemoryStore(seed.Phones...), nil
}

// Add registers a mapping.
func (s *MemoryStore) Add(m PhoneMatch) bool {
	phone := NormalizePhone(m.Phone)
	if phone == "" {
		return false
	}
	m.Phone = phone
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPhone[phone] = append(s.byPhone[phone], m)
	return true
}

// LookupPhone implements Store.
func (s *MemoryStore) LookupPhone(_ context.Context, phone string) ([]PhoneMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.byPhone[phone]
	out := make([]PhoneMatch, len(rows))
	copy(out, rows)
	return out, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
