// Package search keeps a text index of movies and tracks and answers
// case-insensitive substring queries on a single field.
package search

import (
	"context"
	"sort"
	"strings"
	"sync"
)

const (
	KindMovie = "movie"
	KindTrack = "track"
)

type Index interface {
	Put(ctx context.Context, kind, id string, fields map[string]string) error
	Remove(ctx context.Context, kind, id string) error
	// Match returns the ids of kind whose field contains term, ignoring case.
	Match(ctx context.Context, kind, field, term string) ([]string, error)
}

// MemoryIndex is an in-process Index.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]map[string]map[string]string)}
}

func (m *MemoryIndex) Put(_ context.Context, kind, id string, fields map[string]string) error {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = strings.ToLower(v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[kind] == nil {
		m.docs[kind] = make(map[string]map[string]string)
	}
	m.docs[kind][id] = cp
	return nil
}

func (m *MemoryIndex) Remove(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[kind], id)
	return nil
}

func (m *MemoryIndex) Match(_ context.Context, kind, field, term string) ([]string, error) {
	needle := strings.ToLower(term)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, fields := range m.docs[kind] {
		if strings.Contains(fields[field], needle) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// IDSet turns a Match result into a lookup set.
func IDSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
