package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewObjectID_FormatAndUniqueness(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-f]{24}$`)
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewObjectID()
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestObjectIDAt_EmbedsTimestamp(t *testing.T) {
	ts := time.Unix(0x65f1c0d2, 0)
	assert.Equal(t, "65f1c0d2", objectIDAt(ts)[:8])
}
