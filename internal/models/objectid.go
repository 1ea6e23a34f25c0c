package models

import (
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	processUnique = func() [5]byte {
		var b [5]byte
		u := uuid.New()
		copy(b[:], u[:5])
		return b
	}()
	objectIDCounter = func() uint32 {
		u := uuid.New()
		return binary.BigEndian.Uint32(u[:4])
	}()
)

// NewObjectID returns a 24 hex character id: a 4-byte big-endian unix
// timestamp, 5 bytes fixed per process and a 3-byte counter.
func NewObjectID() string {
	return objectIDAt(time.Now())
}

func objectIDAt(t time.Time) string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(t.Unix()))
	copy(b[4:9], processUnique[:])
	c := atomic.AddUint32(&objectIDCounter, 1)
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)
	return hex.EncodeToString(b[:])
}
