package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

const maxUpdateAttempts = 5

// Query selects, orders and pages documents of a collection.
type Query[T any] struct {
	Match func(*T) bool
	Less  func(a, b *T) bool
	Skip  int
	// Limit of zero means no limit.
	Limit int
}

// Collection is typed access to one named collection of a Store.
type Collection[T any] struct {
	store   Store
	name    string
	id      func(*T) string
	uniques func(*T) map[string]string
}

// NewCollection binds name on store. id extracts the document id and
// uniques, when non-nil, the unique keys to enforce.
func NewCollection[T any](store Store, name string, id func(*T) string, uniques func(*T) map[string]string) *Collection[T] {
	return &Collection[T]{store: store, name: name, id: id, uniques: uniques}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Insert(ctx context.Context, doc *T) error {
	rec, err := c.encode(doc)
	if err != nil {
		return err
	}
	return c.store.Insert(ctx, c.name, rec)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	rec, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	return c.decode(rec)
}

// Update reads the document, applies mutate and writes it back, retrying
// when a concurrent writer got there first. mutate may run more than once
// and must not keep side effects between runs.
func (c *Collection[T]) Update(ctx context.Context, id string, mutate func(*T) error) (*T, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		rec, err := c.store.Get(ctx, c.name, id)
		if err != nil {
			return nil, err
		}
		doc, err := c.decode(rec)
		if err != nil {
			return nil, err
		}
		if err := mutate(doc); err != nil {
			return nil, err
		}

		next, err := c.encode(doc)
		if err != nil {
			return nil, err
		}
		next.Version = rec.Version

		err = c.store.Update(ctx, c.name, next)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%s/%s: %w", c.name, id, ErrVersionConflict)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// All decodes every document of the collection.
func (c *Collection[T]) All(ctx context.Context) ([]*T, error) {
	recs, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(recs))
	for _, rec := range recs {
		doc, err := c.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Find returns the matching documents, sorted and paged. Matching runs in
// memory over the full collection returned by Store.List.
func (c *Collection[T]) Find(ctx context.Context, q Query[T]) ([]*T, error) {
	docs, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	matched := filter(docs, q.Match)
	if q.Less != nil {
		sort.SliceStable(matched, func(i, j int) bool { return q.Less(matched[i], matched[j]) })
	}
	return page(matched, q.Skip, q.Limit), nil
}

// Count returns how many documents match. Like Find it decodes the whole
// collection.
func (c *Collection[T]) Count(ctx context.Context, match func(*T) bool) (int, error) {
	docs, err := c.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(filter(docs, match)), nil
}

func (c *Collection[T]) encode(doc *T) (Record, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s: %w", c.name, err)
	}
	rec := Record{ID: c.id(doc), Data: data}
	if c.uniques != nil {
		rec.Uniques = c.uniques(doc)
	}
	return rec, nil
}

func (c *Collection[T]) decode(rec Record) (*T, error) {
	var doc T
	if err := json.Unmarshal(rec.Data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.name, rec.ID, err)
	}
	return &doc, nil
}

func filter[T any](docs []*T, match func(*T) bool) []*T {
	if match == nil {
		return docs
	}
	out := docs[:0:0]
	for _, d := range docs {
		if match(d) {
			out = append(out, d)
		}
	}
	return out
}

func page[T any](docs []*T, skip, limit int) []*T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(docs) {
		return []*T{}
	}
	docs = docs[skip:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
