package bucketing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDocumentBucket_StableAndInRange(t *testing.T) {
	bm := NewBucketingManagerWithBuckets(16)

	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("65f1c0d2a1b2c3d4e5f6%04d", i)
		b := bm.GetDocumentBucket(id)
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 16)
		assert.Equal(t, b, bm.GetDocumentBucket(id))
		seen[b] = true
	}
	assert.Greater(t, len(seen), 8)
}

func TestNewBucketingManager_NonPositiveFallsBackToOne(t *testing.T) {
	bm := NewBucketingManagerWithBuckets(0)
	assert.Equal(t, 1, bm.GetDocumentBuckets())
	assert.Equal(t, []int{0}, bm.AllBuckets())
	assert.Equal(t, 0, bm.GetDocumentBucket("anything"))
}
