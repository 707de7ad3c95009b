package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

type fakeSink struct {
	updates     []string
	snapshots   []bool
	endOfSnap   []int
	clearSnap   []int
	lost        []int
	keysAdded   []string
	keysRemoved []string
	lastFields  map[int]wire.FieldValue
	lastChanged map[int]bool
}

func (f *fakeSink) ItemUpdate(subID, itemPos int, fields map[int]wire.FieldValue, changed map[int]bool, isSnapshot bool) {
	f.updates = append(f.updates, fields[1].Value)
	f.snapshots = append(f.snapshots, isSnapshot)
	f.lastFields = fields
	f.lastChanged = changed
}
func (f *fakeSink) EndOfSnapshot(subID, itemPos int)  { f.endOfSnap = append(f.endOfSnap, itemPos) }
func (f *fakeSink) ClearSnapshot(subID, itemPos int)  { f.clearSnap = append(f.clearSnap, itemPos) }
func (f *fakeSink) LostUpdates(subID, itemPos, n int) { f.lost = append(f.lost, n) }
func (f *fakeSink) CommandKeyAdded(subID, itemPos int, key string) {
	f.keysAdded = append(f.keysAdded, key)
}
func (f *fakeSink) CommandKeyRemoved(subID, itemPos int, key string) {
	f.keysRemoved = append(f.keysRemoved, key)
}
func (f *fakeSink) CommandSecondLevelError(subID, itemPos int, key string, code int, message string) {
}

func TestRegistry_ApplyUpdate_MergesAcrossCalls(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink)
	subID := r.Register(ModeMerge, 0, 0, true)
	r.SetFieldCount(subID, 2)

	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"ACME", "10.0"}))
	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"", "10.5"}))

	assert.Equal(t, []string{"ACME", "ACME"}, sink.updates)
}

func TestRegistry_ApplyUpdate_UnknownSubscription(t *testing.T) {
	r := New(&fakeSink{})
	err := r.ApplyUpdate(999, 1, []string{"x"})
	assert.Error(t, err)
}

func TestRegistry_ApplyUpdate_SnapshotPhaseEndsAtEOS(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink)
	subID := r.Register(ModeMerge, 0, 0, true)
	r.SetFieldCount(subID, 2)

	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"ACME", "12.50"}))
	r.ApplyEndOfSnapshot(subID, 1)
	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"", "12.75"}))

	assert.Equal(t, []bool{true, false}, sink.snapshots)
}

func TestRegistry_ApplyUpdate_NoSnapshotExpectedNeverFlagsOne(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink)
	subID := r.Register(ModeMerge, 0, 0, false)
	r.SetFieldCount(subID, 1)

	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"ACME"}))

	assert.Equal(t, []bool{false}, sink.snapshots)
}

func TestRegistry_CommandModeKeyLifecycle(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink)
	subID := r.Register(ModeCommand, 1, 2, true)
	r.SetFieldCount(subID, 3)

	// key@1, command@2, data@3
	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"k1", "ADD", "v1"}))
	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"", "", "v2"})) // unrelated update, key unchanged
	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"", "DELETE", ""}))

	assert.Equal(t, []string{"k1"}, sink.keysAdded)
	assert.Equal(t, []string{"k1"}, sink.keysRemoved)
}

func TestRegistry_CommandDelete_NullsNonKeyFields(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink)
	subID := r.Register(ModeCommand, 1, 2, true)
	r.SetFieldCount(subID, 3)

	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"k1", "ADD", "v1"}))
	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"", "DELETE", ""}))

	assert.True(t, sink.lastFields[3].Null)
	assert.True(t, sink.lastChanged[3])
	// key and command fields are left alone by the null synthesis.
	assert.Equal(t, "k1", sink.lastFields[1].Value)
	assert.Equal(t, "DELETE", sink.lastFields[2].Value)
}

func TestRegistry_ClearSnapshotDropsCache(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink)
	subID := r.Register(ModeMerge, 0, 0, true)
	r.SetFieldCount(subID, 1)
	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"v"}))

	r.ApplyClearSnapshot(subID, 1)
	assert.Equal(t, []int{1}, sink.clearSnap)

	// after clear, next update starts from an empty cache again, and is
	// back in its snapshot phase.
	require.NoError(t, r.ApplyUpdate(subID, 1, []string{"w"}))
	assert.Equal(t, []string{"v", "w"}, sink.updates)
	assert.Equal(t, []bool{true, true}, sink.snapshots)
}
