package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
)

// BucketingManager spreads document ids over a fixed number of partition
// buckets so a single collection never lands on one wide partition.
type BucketingManager struct {
	documentBuckets int
	hasherPool      sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	return NewBucketingManagerWithBuckets(cfg.Bucketing.DocumentBuckets)
}

func NewBucketingManagerWithBuckets(buckets int) *BucketingManager {
	if buckets <= 0 {
		buckets = 1
	}
	bm := &BucketingManager{documentBuckets: buckets}
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}
	return bm
}

// GetDocumentBucket returns a stable bucket in [0, DocumentBuckets) for id.
func (bm *BucketingManager) GetDocumentBucket(id string) int {
	return int(bm.getHash(id) % uint64(bm.documentBuckets))
}

// AllBuckets lists every bucket, for scans that must visit each partition.
func (bm *BucketingManager) AllBuckets() []int {
	out := make([]int, bm.documentBuckets)
	for i := range out {
		out[i] = i
	}
	return out
}

func (bm *BucketingManager) GetDocumentBuckets() int {
	return bm.documentBuckets
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	_, _ = hasher.Write([]byte(key))
	return hasher.Sum64()
}
