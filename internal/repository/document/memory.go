package document

import (
	"context"
	"sync"
)

type uniqueKey struct {
	collection, field, value string
}

// MemoryStore keeps every collection in process. It is the default backend
// and the one the service tests run against.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]map[string]Record
	order   map[string][]string
	uniques map[uniqueKey]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]map[string]Record),
		order:   make(map[string][]string),
		uniques: make(map[uniqueKey]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, collection string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.data[collection]
	if coll == nil {
		coll = make(map[string]Record)
		s.data[collection] = coll
	}
	if _, exists := coll[rec.ID]; exists {
		return &DuplicateError{Field: "id"}
	}
	if err := s.checkUniques(collection, rec.ID, rec.Uniques); err != nil {
		return err
	}

	for field, val := range rec.Uniques {
		s.uniques[uniqueKey{collection, field, val}] = rec.ID
	}
	rec.Version = 1
	coll[rec.ID] = copyRecord(rec)
	s.order[collection] = append(s.order[collection], rec.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[collection][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) Update(_ context.Context, collection string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[collection][rec.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != rec.Version {
		return ErrVersionConflict
	}

	claim, release := ChangedUniques(cur.Uniques, rec.Uniques)
	if err := s.checkUniques(collection, rec.ID, claim); err != nil {
		return err
	}
	for field, val := range release {
		delete(s.uniques, uniqueKey{collection, field, val})
	}
	for field, val := range claim {
		s.uniques[uniqueKey{collection, field, val}] = rec.ID
	}

	rec.Version = cur.Version + 1
	s.data[collection][rec.ID] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	for field, val := range cur.Uniques {
		delete(s.uniques, uniqueKey{collection, field, val})
	}
	delete(s.data[collection], id)

	ids := s.order[collection]
	for i, existing := range ids {
		if existing == id {
			s.order[collection] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// List returns records in insertion order.
func (s *MemoryStore) List(_ context.Context, collection string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[collection]
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyRecord(s.data[collection][id]))
	}
	return out, nil
}

func (s *MemoryStore) HealthCheck(context.Context) error { return nil }

func (s *MemoryStore) Close() {}

func (s *MemoryStore) checkUniques(collection, id string, keys map[string]string) error {
	for field, val := range keys {
		if owner, taken := s.uniques[uniqueKey{collection, field, val}]; taken && owner != id {
			return &DuplicateError{Field: field}
		}
	}
	return nil
}

func copyRecord(r Record) Record {
	out := Record{ID: r.ID, Version: r.Version}
	out.Data = append([]byte(nil), r.Data...)
	if r.Uniques != nil {
		out.Uniques = make(map[string]string, len(r.Uniques))
		for k, v := range r.Uniques {
			out.Uniques[k] = v
		}
	}
	return out
}
