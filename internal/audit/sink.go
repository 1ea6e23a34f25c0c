// Package audit ships access-log rows to the analytics store.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/client"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
)

type Sink interface {
	Record(entry models.AccessLog)
	Close(ctx context.Context) error
}

type NopSink struct{}

func (NopSink) Record(models.AccessLog)      {}
func (NopSink) Close(context.Context) error { return nil }

// BatchWriter is the part of the ClickHouse client the sink needs.
type BatchWriter interface {
	BatchInsert(ctx context.Context, query string, rows [][]interface{}) error
}

// ClickHouseSink buffers rows and writes them in batches, whenever the
// buffer reaches batchSize or every flushInterval, whichever comes first.
// Failed batches are logged and dropped.
type ClickHouseSink struct {
	writer        BatchWriter
	table         string
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger

	mu      sync.Mutex
	buffer  []models.AccessLog
	kick    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	started bool
}

func NewClickHouseSink(writer BatchWriter, table string, batchSize int, flushInterval time.Duration, logger *zap.Logger) *ClickHouseSink {
	if batchSize <= 0 {
		batchSize = 500
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &ClickHouseSink{
		writer:        writer,
		table:         table,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Start runs the flush loop until Close.
func (s *ClickHouseSink) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go s.run()
}

func (s *ClickHouseSink) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush(context.Background())
		case <-s.kick:
			s.Flush(context.Background())
		case <-s.done:
			return
		}
	}
}

func (s *ClickHouseSink) Record(entry models.AccessLog) {
	s.mu.Lock()
	s.buffer = append(s.buffer, entry)
	full := len(s.buffer) >= s.batchSize
	s.mu.Unlock()

	if full {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// Flush writes whatever is buffered.
func (s *ClickHouseSink) Flush(ctx context.Context) {
	s.mu.Lock()
	pending := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	rows := make([][]interface{}, len(pending))
	for i, e := range pending {
		rows[i] = []interface{}{
			e.EventTime.UTC(),
			e.RequestID,
			e.Method,
			e.Path,
			e.Route,
			uint16(e.Status),
			uint32(e.Duration.Milliseconds()),
			e.ClientIP,
			e.UserAgent,
			uint64(e.BytesWrote),
		}
	}

	if err := s.writer.BatchInsert(ctx, insertQuery(s.table), rows); err != nil {
		s.logger.Warn("Failed to flush access log batch",
			zap.Int("rows", len(rows)),
			zap.Error(err))
		return
	}
	s.logger.Debug("Flushed access log batch", zap.Int("rows", len(rows)))
}

// Close stops the loop and flushes the remainder.
func (s *ClickHouseSink) Close(ctx context.Context) error {
	s.once.Do(func() {
		close(s.done)
	})
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		select {
		case <-s.stopped:
		case <-ctx.Done():
		}
	}
	s.Flush(ctx)
	return nil
}

// Pending reports how many rows are waiting for the next flush.
func (s *ClickHouseSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

func insertQuery(table string) string {
	return fmt.Sprintf("INSERT INTO %s (event_time, request_id, method, path, route, status, duration_ms, client_ip, user_agent, bytes_written)", table)
}

// Migrate creates the access-log table.
func Migrate(ctx context.Context, ch *client.ClickHouseClient, table string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		event_date    Date DEFAULT toDate(event_time),
		event_time    DateTime64(3, 'UTC'),
		request_id    String,
		method        LowCardinality(String),
		path          String,
		route         LowCardinality(String),
		status        UInt16,
		duration_ms   UInt32,
		client_ip     String,
		user_agent    String,
		bytes_written UInt64
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(event_date)
	ORDER BY (event_date, route, event_time)
	TTL event_date + INTERVAL 90 DAY`, table)
	if err := ch.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create access log table: %w", err)
	}
	return nil
}

var _ BatchWriter = (*client.ClickHouseClient)(nil)
