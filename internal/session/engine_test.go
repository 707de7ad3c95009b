package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDisconnected, StatusConnecting))
	assert.False(t, CanTransition(StatusDisconnected, StatusConnectedWSStreaming))
	assert.True(t, CanTransition(StatusConnectedWSStreaming, StatusDisconnected))
	assert.False(t, CanTransition(StatusConnecting, StatusConnecting))
}

func TestMessageQueue_SequencesPerName(t *testing.T) {
	q := newMessageQueue()
	assert.Equal(t, 1, q.next("chat"))
	assert.Equal(t, 2, q.next("chat"))
	assert.Equal(t, 1, q.next("other"))
}

func TestMessageQueue_ResolveOnce(t *testing.T) {
	q := newMessageQueue()
	q.next("chat")
	assert.True(t, q.resolve("chat", 1))
	assert.False(t, q.resolve("chat", 1))
}

func TestMessageQueue_AbortAllReportsPending(t *testing.T) {
	q := newMessageQueue()
	q.next("chat")
	q.next("chat")
	var reported [][2]interface{}
	q.abortAll(func(sequence string, number int) {
		reported = append(reported, [2]interface{}{sequence, number})
	})
	assert.Len(t, reported, 2)
	assert.False(t, q.resolve("chat", 1))
}

type fakeCallbacks struct {
	statuses  []Status
	errors    []string
	snapshots []bool
}

func (f *fakeCallbacks) OnStatusChange(s Status) { f.statuses = append(f.statuses, s) }
func (f *fakeCallbacks) OnSessionBound(SessionInfo)   {}
func (f *fakeCallbacks) OnSessionEnded(int, string, bool) {}
func (f *fakeCallbacks) OnServerError(code int, message string) {
	f.errors = append(f.errors, message)
}
func (f *fakeCallbacks) OnSubscriptionAck(int, int, int)               {}
func (f *fakeCallbacks) OnSubscriptionCommandAck(int, int, int, int, int) {}
func (f *fakeCallbacks) OnUnsubscribed(int)                            {}
func (f *fakeCallbacks) OnSubscriptionError(int, int, string)          {}
func (f *fakeCallbacks) OnRealMaxFrequency(int, string)                {}
func (f *fakeCallbacks) OnItemUpdate(subID, itemPos int, fields map[int]wire.FieldValue, changed map[int]bool, isSnapshot bool) {
	f.snapshots = append(f.snapshots, isSnapshot)
}
func (f *fakeCallbacks) OnEndOfSnapshot(int, int)                      {}
func (f *fakeCallbacks) OnClearSnapshot(int, int)                      {}
func (f *fakeCallbacks) OnLostUpdates(int, int, int)                   {}
func (f *fakeCallbacks) OnCommandKeyAdded(int, int, string)            {}
func (f *fakeCallbacks) OnCommandKeyRemoved(int, int, string)          {}
func (f *fakeCallbacks) OnCommandSecondLevelError(int, int, string, int, string) {}
func (f *fakeCallbacks) OnRealMaxBandwidth(string)                     {}
func (f *fakeCallbacks) OnMessageOutcome(string, int, MessageOutcome, string) {}

func TestEngine_SubscribeWithoutSessionFails(t *testing.T) {
	cb := &fakeCallbacks{}
	e := New(cb, nil, nil, zerolog.Nop())

	_, err := e.doSubscribe(context.Background(), SubscribeSpec{Mode: "MERGE", Items: []string{"item1"}, Fields: []string{"f1"}})
	require.Error(t, err)
}

func TestEngine_InitialStatusIsDisconnected(t *testing.T) {
	cb := &fakeCallbacks{}
	e := New(cb, nil, nil, zerolog.Nop())
	assert.Equal(t, StatusDisconnected, e.Status())
}

// TestEngine_UpdatesBeforeEOSAreSnapshotUpdates mirrors the "Happy MERGE"
// scenario: a U frame arriving between SUBOK and EOS is a snapshot update,
// and one arriving after EOS is not.
func TestEngine_UpdatesBeforeEOSAreSnapshotUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cb := &fakeCallbacks{}
	e := New(cb, nil, nil, zerolog.Nop())
	e.sessionID = "S1"
	e.cfg = Config{ServerAddress: srv.URL}

	subID, err := e.doSubscribe(context.Background(), SubscribeSpec{Mode: "MERGE", Items: []string{"item1"}, Fields: []string{"stock_name", "last_price"}})
	require.NoError(t, err)
	id := strconv.Itoa(subID)

	ctx := context.Background()
	e.dispatchFrame(ctx, wire.Frame{Tag: wire.TagSUBOK, Args: []string{id, "1", "2"}})
	e.dispatchFrame(ctx, wire.Frame{Tag: wire.TagU, Args: []string{id, "1", "ACME|12.50"}})
	e.dispatchFrame(ctx, wire.Frame{Tag: wire.TagEOS, Args: []string{id, "1"}})
	e.dispatchFrame(ctx, wire.Frame{Tag: wire.TagU, Args: []string{id, "1", "|12.75"}})

	assert.Equal(t, []bool{true, false}, cb.snapshots)
}
