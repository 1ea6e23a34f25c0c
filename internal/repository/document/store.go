// Package document is the persistence contract for the JSON document
// collections (movies, users, tracks, storage). Backends store opaque JSON
// with a version for optimistic updates and a set of unique keys; the
// generic Collection layers typed access, filtering and paging on top.
package document

import (
	"context"
	"fmt"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
)

var (
	ErrNotFound = fmt.Errorf("document %w", apperror.ErrNotFound)
	// ErrDuplicate means a unique key is already owned by another document.
	ErrDuplicate = fmt.Errorf("unique key: %w", apperror.ErrDuplicate)
	// ErrVersionConflict means the document changed since it was read.
	ErrVersionConflict = fmt.Errorf("document version: %w", apperror.ErrConflict)
)

// DuplicateError names the unique field that collided.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for unique field %q", e.Field)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// Record is one stored document.
type Record struct {
	ID      string
	Data    []byte
	Version int64
	// Uniques maps a unique field name to the value this document holds.
	Uniques map[string]string
}

// Store is implemented by the memory, Scylla and Postgres backends.
type Store interface {
	// Insert stores a new record at version 1. It fails with a
	// *DuplicateError when a unique key is owned by another id.
	Insert(ctx context.Context, collection string, rec Record) error
	Get(ctx context.Context, collection, id string) (Record, error)
	// Update replaces the record whose stored version equals rec.Version
	// and bumps it by one. Unique keys that change are claimed and the old
	// ones released.
	Update(ctx context.Context, collection string, rec Record) error
	Delete(ctx context.Context, collection, id string) error
	// List returns every record of the collection. Backends do not filter,
	// sort or page; callers load the whole collection and work in memory.
	List(ctx context.Context, collection string) ([]Record, error)
	HealthCheck(ctx context.Context) error
	Close()
}

// ChangedUniques splits unique keys into those to claim and those to release.
func ChangedUniques(prev, next map[string]string) (claim, release map[string]string) {
	claim = map[string]string{}
	release = map[string]string{}
	for field, val := range next {
		if prev[field] != val {
			claim[field] = val
		}
	}
	for field, val := range prev {
		if next[field] != val {
			release[field] = val
		}
	}
	return claim, release
}

