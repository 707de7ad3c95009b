package tlcpclient

import (
	"context"

	"github.com/streamspace-dev/tlcp-client/internal/dispatch"
)

// dispatchBus adapts internal/dispatch.Bus to this package's call sites,
// which never need per-call cancellation: listener delivery either
// succeeds or the whole Client is shutting down, in which case Close
// drains what it can and returns.
type dispatchBus struct {
	bus *dispatch.Bus
}

func newDispatchBus(capacity int) *dispatchBus {
	return &dispatchBus{bus: dispatch.New(capacity)}
}

// listenable is satisfied by both ClientListener and SubscriptionListener.
type listenable interface {
	OnListenStart()
	OnListenEnd()
}

func (b *dispatchBus) post(l listenable, fn func()) {
	_ = b.bus.Post(context.Background(), l, fn)
}

func (b *dispatchBus) Close() {
	b.bus.Close()
}
