package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := New(4)
	defer p.Close()

	var count int64
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Run(ctx, func(ctx context.Context) {
			atomic.AddInt64(&count, 1)
		}))
	}
	assert.Equal(t, int64(50), atomic.LoadInt64(&count))
}

func TestPoolWorkersDefaultsWhenNonPositive(t *testing.T) {
	p := New(0)
	defer p.Close()
	assert.Greater(t, p.Workers(), 0)
}

func TestPoolSubmitRespectsContextCancellation(t *testing.T) {
	p := New(1)
	defer p.Close()

	block := make(chan struct{})
	// Occupy the one worker, then fill its task buffer (size*4 slots),
	// so a further Submit has nowhere to enqueue and must block on ctx.
	_, err := p.Submit(context.Background(), func(ctx context.Context) {
		<-block
	})
	require.NoError(t, err)
	for i := 0; i < p.Workers()*4; i++ {
		_, err := p.Submit(context.Background(), func(ctx context.Context) {
			<-block
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Submit(ctx, func(ctx context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}

func TestPoolCloseRejectsFurtherSubmits(t *testing.T) {
	p := New(2)
	p.Close()

	_, err := p.Submit(context.Background(), func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)

	// Close is idempotent.
	p.Close()
}
