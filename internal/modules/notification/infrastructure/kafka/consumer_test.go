package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchResult struct {
	msg kafka.Message
	err error
}

// scriptedReader replays results, then blocks until the context is done.
type scriptedReader struct {
	mu        sync.Mutex
	results   []fetchResult
	committed []int64
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.results) > 0 {
		next := r.results[0]
		r.results = r.results[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func (r *scriptedReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := &scriptedReader{results: []fetchResult{
		{err: io.EOF},
		{err: errors.New("broker unavailable")},
		{msg: kafka.Message{Offset: 1, Value: []byte("ok")}},
		{msg: kafka.Message{Offset: 2, Value: []byte("bad")}},
	}}
	c := NewConsumerWithReader(reader, logging.Nop())
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var handled []string
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(_ context.Context, _, value []byte) error {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, string(value))
			if string(value) == "bad" {
				return errors.New("rejected")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []string{"ok", "bad"}, handled)
	assert.Equal(t, []int64{1, 2}, reader.commits())
	assert.Equal(t, []time.Duration{initialBackoff, 2 * initialBackoff}, slept)

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestConsumer_StopsOnCanceledContext(t *testing.T) {
	c := NewConsumerWithReader(&scriptedReader{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Consume(ctx, func(context.Context, []byte, []byte) error { return nil }), context.Canceled)
}

func TestSleepCtx_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	sleepCtx(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}
