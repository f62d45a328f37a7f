package courier

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		b := New()
		assert.Equal(t, 0, b.inboxCapacity)
		assert.False(t, b.retainCompleted)
		assert.NotNil(t, b.log)
	})

	t.Run("configured", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		b := New(WithInboxCapacity(8), WithRetainCompleted(true), WithLogger(logger))
		assert.Equal(t, 8, b.inboxCapacity)
		assert.True(t, b.retainCompleted)

		b.Register(newMember("a"))
		assert.Contains(t, buf.String(), "registered worker")
		assert.Contains(t, buf.String(), "logger=broker")
	})
}

func TestWorkerOptions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w := NewWorker("logged", New(), nil, WorkerLogger(logger), WorkerID("w-1"))
	require.Equal(t, "w-1", w.ID())

	w.Logger().Info("hello")
	assert.Contains(t, buf.String(), "logger=worker")
	assert.Contains(t, buf.String(), "worker=logged")
}
