package tlcpclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

func TestNewSubscription_ValidatesModeItemsFields(t *testing.T) {
	_, err := NewSubscription(Mode("BOGUS"), []string{"item1"}, []string{"f1"})
	require.Error(t, err)

	_, err = NewSubscription(ModeMerge, nil, []string{"f1"})
	require.Error(t, err)

	_, err = NewSubscription(ModeMerge, []string{"item1"}, nil)
	require.Error(t, err)

	sub, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"f1"})
	require.NoError(t, err)
	require.Equal(t, ModeMerge, sub.Mode())
	require.False(t, sub.IsActive())
}

func TestNewSubscription_RejectsCommaInNames(t *testing.T) {
	_, err := NewSubscription(ModeMerge, []string{"item,1"}, []string{"f1"})
	require.Error(t, err)
}

func TestSnapshot_Encode(t *testing.T) {
	require.Equal(t, "true", SnapshotYes().encode())
	require.Equal(t, "false", SnapshotNo().encode())
	require.Equal(t, "5", SnapshotLength(5).encode())
}

func TestSubscription_SettersRejectWhileActive(t *testing.T) {
	sub, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"f1"})
	require.NoError(t, err)
	sub.markActive(1, map[string]int{"item1": 1}, map[string]int{"f1": 1}, 0, 0)

	require.Error(t, sub.SetDataAdapter("x"))
	require.Error(t, sub.SetSelector("x"))
	require.Error(t, sub.SetRequestedSnapshot(SnapshotYes()))
}

func TestSubscription_AddRemoveListenerByPointerIdentity(t *testing.T) {
	sub, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"f1"})
	require.NoError(t, err)

	l1 := &BaseSubscriptionListener{}
	l2 := &BaseSubscriptionListener{}
	sub.AddListener(l1)
	sub.AddListener(l2)
	sub.AddListener(l1) // duplicate add is a no-op
	require.Len(t, sub.snapshotListeners(), 2)

	sub.RemoveListener(l1)
	require.Len(t, sub.snapshotListeners(), 1)
	require.Same(t, l2, sub.snapshotListeners()[0])
}

func TestSubscription_CommandSecondLevelFieldsRequiresCommandMode(t *testing.T) {
	sub, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"f1"})
	require.NoError(t, err)
	require.Error(t, sub.SetCommandSecondLevelFields([]string{"x"}))

	cmdSub, err := NewSubscription(ModeCommand, []string{"item1"}, []string{"key", "command"})
	require.NoError(t, err)
	require.NoError(t, cmdSub.SetCommandSecondLevelFields([]string{"bid", "ask"}))
	require.Equal(t, []string{"bid", "ask"}, cmdSub.CommandSecondLevelFields())
}

func TestSubscription_ItemAndFieldNameByPosition(t *testing.T) {
	sub, err := NewSubscription(ModeMerge, []string{"item1", "item2"}, []string{"f1", "f2"})
	require.NoError(t, err)
	require.Equal(t, "item2", sub.itemName(2))
	require.Equal(t, "f1", sub.fieldName(1))
	require.Equal(t, "", sub.itemName(0))
	require.Equal(t, "", sub.fieldName(99))
}

func TestSubscription_GetValue_TracksLatestPerItemField(t *testing.T) {
	sub, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"stock_name", "last_price"})
	require.NoError(t, err)

	require.Nil(t, sub.GetValue(1, 2))

	sub.applyUpdateCache(1, map[int]wire.FieldValue{1: {Value: "ACME"}, 2: {Value: "12.50"}})
	require.Equal(t, "ACME", *sub.GetValue(1, 1))
	require.Equal(t, "12.50", *sub.GetValue(1, 2))

	sub.applyUpdateCache(1, map[int]wire.FieldValue{2: {Value: "12.75"}})
	require.Equal(t, "ACME", *sub.GetValue(1, 1))
	require.Equal(t, "12.75", *sub.GetValue(1, 2))
}

func TestSubscription_GetValue_NullFieldReturnsNil(t *testing.T) {
	sub, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"f1"})
	require.NoError(t, err)
	sub.applyUpdateCache(1, map[int]wire.FieldValue{1: {Null: true}})
	require.Nil(t, sub.GetValue(1, 1))
}

// TestSubscription_CommandKeyIntegrity mirrors the literal ADD/ADD/DELETE
// scenario: after U,1,1,k1|ADD|v1 then U,1,1,k2|ADD|v2 then U,1,1,k1|DELETE|,
// the deleted key's data field reads back as None while the untouched key's
// value survives.
func TestSubscription_CommandKeyIntegrity(t *testing.T) {
	sub, err := NewSubscription(ModeCommand, []string{"item1"}, []string{"key", "command", "price"})
	require.NoError(t, err)
	sub.markActive(1, map[string]int{"item1": 1}, map[string]int{"key": 1, "command": 2, "price": 3}, 1, 2)

	sub.applyUpdateCache(1, map[int]wire.FieldValue{1: {Value: "k1"}, 2: {Value: "ADD"}, 3: {Value: "v1"}})
	sub.applyUpdateCache(1, map[int]wire.FieldValue{1: {Value: "k2"}, 2: {Value: "ADD"}, 3: {Value: "v2"}})
	require.Equal(t, "v1", *sub.GetCommandValue(1, "k1", 3))
	require.Equal(t, "v2", *sub.GetCommandValue(1, "k2", 3))

	// DELETE carries all non-key fields as explicit nulls (see
	// internal/registry's command synthesis), which the cache stores
	// verbatim.
	sub.applyUpdateCache(1, map[int]wire.FieldValue{1: {Value: "k1"}, 2: {Value: "DELETE"}, 3: {Null: true}})
	require.Nil(t, sub.GetCommandValue(1, "k1", 3))
	require.Equal(t, "v2", *sub.GetCommandValue(1, "k2", 3))
}

func TestSubscription_GetCommandValue_UnknownKeyOrItem(t *testing.T) {
	sub, err := NewSubscription(ModeCommand, []string{"item1"}, []string{"key", "command", "price"})
	require.NoError(t, err)
	require.Nil(t, sub.GetCommandValue(1, "missing", 3))
	require.Nil(t, sub.GetCommandValue(99, "missing", 3))
}

func TestSubscription_MarkInactiveClearsValueCaches(t *testing.T) {
	sub, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"f1"})
	require.NoError(t, err)
	sub.applyUpdateCache(1, map[int]wire.FieldValue{1: {Value: "v"}})
	require.NotNil(t, sub.GetValue(1, 1))

	sub.markInactive()
	require.Nil(t, sub.GetValue(1, 1))
}
