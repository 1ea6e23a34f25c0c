package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][][]interface{}
	queries []string
	err     error
}

func (f *fakeWriter) BatchInsert(_ context.Context, query string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.queries = append(f.queries, query)
	f.batches = append(f.batches, rows)
	return nil
}

func (f *fakeWriter) rows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func entry(path string, status int) models.AccessLog {
	return models.AccessLog{
		EventTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		RequestID: "req-1",
		Method:    "GET",
		Path:      path,
		Route:     "/api/movies",
		Status:    status,
		Duration:  1500 * time.Millisecond,
		ClientIP:  "10.0.0.1",
	}
}

func TestFlush_WritesBufferedRows(t *testing.T) {
	w := &fakeWriter{}
	sink := NewClickHouseSink(w, "access_log", 100, time.Hour, zap.NewNop())

	sink.Record(entry("/api/movies", 200))
	sink.Record(entry("/api/movies/x", 404))
	require.Equal(t, 2, sink.Pending())

	sink.Flush(context.Background())

	assert.Equal(t, 0, sink.Pending())
	require.Len(t, w.batches, 1)
	assert.Contains(t, w.queries[0], "INSERT INTO access_log")
	row := w.batches[0][1]
	assert.Equal(t, "/api/movies/x", row[3])
	assert.Equal(t, uint16(404), row[5])
	assert.Equal(t, uint32(1500), row[6])
}

func TestFlush_EmptyBufferWritesNothing(t *testing.T) {
	w := &fakeWriter{}
	sink := NewClickHouseSink(w, "access_log", 10, time.Hour, zap.NewNop())
	sink.Flush(context.Background())
	assert.Empty(t, w.batches)
}

func TestFlush_FailureDropsBatch(t *testing.T) {
	w := &fakeWriter{err: errors.New("clickhouse down")}
	sink := NewClickHouseSink(w, "access_log", 10, time.Hour, zap.NewNop())

	sink.Record(entry("/a", 200))
	sink.Flush(context.Background())

	assert.Equal(t, 0, sink.Pending())
}

func TestStart_FlushesWhenBatchIsFull(t *testing.T) {
	w := &fakeWriter{}
	sink := NewClickHouseSink(w, "access_log", 2, time.Hour, zap.NewNop())
	sink.Start()
	defer sink.Close(context.Background())

	sink.Record(entry("/a", 200))
	sink.Record(entry("/b", 200))

	assert.Eventually(t, func() bool { return w.rows() == 2 }, time.Second, 5*time.Millisecond)
}

func TestClose_FlushesRemainder(t *testing.T) {
	w := &fakeWriter{}
	sink := NewClickHouseSink(w, "access_log", 50, time.Hour, zap.NewNop())
	sink.Start()

	sink.Record(entry("/a", 200))
	require.NoError(t, sink.Close(context.Background()))

	assert.Equal(t, 1, w.rows())
}
