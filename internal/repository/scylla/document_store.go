package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/bucketing"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

// DocumentStore keeps documents in one wide table partitioned by
// (collection, bucket). Unique keys are reserved with lightweight
// transactions in unique_keys.
type DocumentStore struct {
	client  *ScyllaClient
	buckets *bucketing.BucketingManager
}

func NewDocumentStore(client *ScyllaClient, buckets *bucketing.BucketingManager) *DocumentStore {
	return &DocumentStore{client: client, buckets: buckets}
}

var _ document.Store = (*DocumentStore)(nil)

func (s *DocumentStore) Insert(ctx context.Context, collection string, rec document.Record) error {
	claimed, err := s.claim(ctx, collection, rec.ID, rec.Uniques)
	if err != nil {
		return err
	}

	bucket := s.buckets.GetDocumentBucket(rec.ID)
	existing := map[string]interface{}{}
	applied, err := s.client.Query(ctx, s.client.Prepared.InsertDocument,
		collection, bucket, rec.ID, rec.Data, int64(1), rec.Uniques, time.Now().UTC()).
		MapScanCAS(existing)
	if err != nil || !applied {
		s.release(ctx, collection, rec.ID, claimed)
		if err != nil {
			util.Error("Failed to insert document",
				zap.String("collection", collection),
				zap.String("id", rec.ID),
				zap.Error(err))
			return fmt.Errorf("failed to insert document: %w", err)
		}
		return &document.DuplicateError{Field: "id"}
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (document.Record, error) {
	rec := document.Record{ID: id}
	q := s.client.Query(ctx, s.client.Prepared.GetDocument, collection, s.buckets.GetDocumentBucket(id), id)
	if err := s.client.ScanWithRetry(q, &rec.Data, &rec.Version, &rec.Uniques); err != nil {
		if err == gocql.ErrNotFound {
			return document.Record{}, document.ErrNotFound
		}
		return document.Record{}, fmt.Errorf("failed to get document: %w", err)
	}
	return rec, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection string, rec document.Record) error {
	cur, err := s.Get(ctx, collection, rec.ID)
	if err != nil {
		return err
	}
	claim, release := document.ChangedUniques(cur.Uniques, rec.Uniques)

	claimed, err := s.claim(ctx, collection, rec.ID, claim)
	if err != nil {
		return err
	}

	existing := map[string]interface{}{}
	applied, err := s.client.Query(ctx, s.client.Prepared.UpdateDocument,
		rec.Data, rec.Version+1, rec.Uniques,
		collection, s.buckets.GetDocumentBucket(rec.ID), rec.ID, rec.Version).
		MapScanCAS(existing)
	if err != nil {
		s.release(ctx, collection, rec.ID, claimed)
		return fmt.Errorf("failed to update document: %w", err)
	}
	if !applied {
		s.release(ctx, collection, rec.ID, claimed)
		if len(existing) == 0 {
			return document.ErrNotFound
		}
		return document.ErrVersionConflict
	}

	s.release(ctx, collection, rec.ID, release)
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	cur, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	applied, err := s.client.Query(ctx, s.client.Prepared.DeleteDocument,
		collection, s.buckets.GetDocumentBucket(id), id).
		MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !applied {
		return document.ErrNotFound
	}

	s.release(ctx, collection, id, cur.Uniques)
	return nil
}

// List reads every bucket of the collection.
func (s *DocumentStore) List(ctx context.Context, collection string) ([]document.Record, error) {
	var out []document.Record
	for _, bucket := range s.buckets.AllBuckets() {
		iter := s.client.Query(ctx, s.client.Prepared.ListBucket, collection, bucket).Iter()

		var (
			id      string
			data    []byte
			version int64
			uniques map[string]string
		)
		for iter.Scan(&id, &data, &version, &uniques) {
			out = append(out, document.Record{
				ID:      id,
				Data:    append([]byte(nil), data...),
				Version: version,
				Uniques: uniques,
			})
			uniques = nil
		}
		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("failed to list %s bucket %d: %w", collection, bucket, err)
		}
	}
	return out, nil
}

func (s *DocumentStore) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

func (s *DocumentStore) Close() {
	s.client.Close()
}

// claim reserves every key for id and returns what it reserved. On a
// collision it rolls back its own reservations.
func (s *DocumentStore) claim(ctx context.Context, collection, id string, keys map[string]string) (map[string]string, error) {
	claimed := map[string]string{}
	for field, val := range keys {
		existing := map[string]interface{}{}
		applied, err := s.client.Query(ctx, s.client.Prepared.ClaimUnique, collection, field, val, id).
			MapScanCAS(existing)
		if err != nil {
			s.release(ctx, collection, id, claimed)
			return nil, fmt.Errorf("failed to claim unique key: %w", err)
		}
		if !applied {
			if owner, _ := existing["owner"].(string); owner != id {
				s.release(ctx, collection, id, claimed)
				return nil, &document.DuplicateError{Field: field}
			}
			continue
		}
		claimed[field] = val
	}
	return claimed, nil
}

func (s *DocumentStore) release(ctx context.Context, collection, id string, keys map[string]string) {
	for field, val := range keys {
		_, err := s.client.Query(ctx, s.client.Prepared.ReleaseUnique, collection, field, val, id).
			MapScanCAS(map[string]interface{}{})
		if err != nil {
			util.Warn("Failed to release unique key",
				zap.String("collection", collection),
				zap.String("field", field),
				zap.Error(err))
		}
	}
}
