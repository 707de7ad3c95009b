package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListener struct {
	starts, ends, calls int
}

func (f *fakeListener) OnListenStart() { f.starts++ }
func (f *fakeListener) OnListenEnd()   { f.ends++ }

func TestBus_BracketsEachJob(t *testing.T) {
	b := New(4)
	defer b.Close()

	l := &fakeListener{}
	done := make(chan struct{})
	ctx := context.Background()

	require.NoError(t, b.Post(ctx, l, func() { l.calls++ }))
	require.NoError(t, b.Post(ctx, l, func() { l.calls++ }))
	// done is closed by a later job, so both OnListenEnd calls have run.
	require.NoError(t, b.PostFunc(ctx, func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("jobs never drained")
	}

	assert.Equal(t, 2, l.calls)
	assert.Equal(t, 2, l.starts)
	assert.Equal(t, 2, l.ends)
}

func TestBus_OrdersJobsFIFO(t *testing.T) {
	b := New(8)
	defer b.Close()

	var order []int
	doneCh := make(chan struct{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		i := i
		last := i == 4
		require.NoError(t, b.PostFunc(ctx, func() {
			order = append(order, i)
			if last {
				close(doneCh)
			}
		}))
	}
	<-doneCh
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestBus_PostRespectsContextCancel(t *testing.T) {
	b := New(1)
	defer b.Close()

	// fill the queue, then block it with a slow first job.
	block := make(chan struct{})
	require.NoError(t, b.PostFunc(context.Background(), func() { <-block }))
	require.NoError(t, b.PostFunc(context.Background(), func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.PostFunc(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}
