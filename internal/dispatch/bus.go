// Package dispatch runs the single goroutine that is the sole caller of any
// listener method (spec §4.6's concurrency discipline). Every callback,
// regardless of which client, subscription, or message triggered it, is
// funneled through one Bus so listener implementations never observe
// concurrent or re-entrant invocations.
package dispatch

import "context"

// listenable is satisfied by ClientListener and SubscriptionListener; both
// bracket their callback batches with OnListenStart/OnListenEnd.
type listenable interface {
	OnListenStart()
	OnListenEnd()
}

// job pairs a listener to bracket with the callback to run against it. A nil
// listener (used for bus-internal housekeeping) skips bracketing.
type job struct {
	listener listenable
	fn       func()
}

// Bus is a bounded, ordered callback queue drained by one goroutine. Unlike
// the teacher's Hub.Broadcast, which drops messages to slow clients, Bus
// never drops a job: there is exactly one reader in this design (the
// library's caller-facing listeners), so silently dropping an update would
// violate the "every update reaches the listener or the subscription errors
// out" guarantee spec §4.2 requires. A full queue applies backpressure to
// Post instead.
type Bus struct {
	queue chan job
	done  chan struct{}
}

// New starts a Bus with the given queue capacity and begins draining it
// immediately in a background goroutine.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 256
	}
	b := &Bus{
		queue: make(chan job, capacity),
		done:  make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	for j := range b.queue {
		if j.listener != nil {
			j.listener.OnListenStart()
		}
		j.fn()
		if j.listener != nil {
			j.listener.OnListenEnd()
		}
	}
	close(b.done)
}

// Post enqueues fn to run on the dispatch goroutine, bracketed by
// listener's OnListenStart/OnListenEnd. It blocks if the queue is full
// (backpressure) and returns early if ctx is canceled first.
func (b *Bus) Post(ctx context.Context, listener listenable, fn func()) error {
	select {
	case b.queue <- job{listener: listener, fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PostFunc enqueues an unbracketed callback, for bus-internal work that
// isn't a listener invocation (e.g. closing down).
func (b *Bus) PostFunc(ctx context.Context, fn func()) error {
	return b.Post(ctx, nil, fn)
}

// Close stops accepting new jobs and waits for the queue to drain.
func (b *Bus) Close() {
	close(b.queue)
	<-b.done
}
