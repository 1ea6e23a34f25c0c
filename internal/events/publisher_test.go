package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("broker down") }
func (failingPublisher) Close() error                         { return nil }

func TestEmit_LogsFailureAtWarn(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	Emit(context.Background(), failingPublisher{}, zap.New(core), New(MovieRented, "abc", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Failed to publish event", entry.Message)
	assert.Equal(t, MovieRented, entry.ContextMap()["type"])
}

func TestEmit_NilPublisherIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), nil, zap.NewNop(), New(UserCreated, "u1", nil))
	})
}

func TestRecorder_KeepsOrder(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()

	require.NoError(t, rec.Publish(ctx, New(MovieCreated, "m1", nil)))
	require.NoError(t, rec.Publish(ctx, New(MovieRented, "m1", nil)))

	assert.Equal(t, []string{MovieCreated, MovieRented}, rec.Types())
	assert.Equal(t, "m1", rec.Events()[1].Key)
}
