package tlcpclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClient_ValidatesServerAddress(t *testing.T) {
	_, err := NewClient("not-a-url", "")
	require.Error(t, err)
}

func TestNewClient_DefaultsAdapterSet(t *testing.T) {
	c, err := NewClient("https://push.example.com", "")
	require.NoError(t, err)
	require.Equal(t, DefaultAdapterSet, c.ConnectionDetails().AdapterSet())
	require.Equal(t, StatusDisconnected, c.Status())
}

func TestWithHTTPClient_RejectsNil(t *testing.T) {
	_, err := NewClient("https://push.example.com", "", WithHTTPClient(nil))
	require.Error(t, err)
}

func TestWithHTTPClient_Overrides(t *testing.T) {
	hc := &http.Client{}
	c, err := NewClient("https://push.example.com", "", WithHTTPClient(hc))
	require.NoError(t, err)
	require.Same(t, hc, c.httpClient)
}

func TestClient_AddRemoveListenerDedup(t *testing.T) {
	c, err := NewClient("https://push.example.com", "")
	require.NoError(t, err)

	l1 := &BaseClientListener{}
	c.AddListener(l1)
	c.AddListener(l1)
	require.Len(t, c.snapshotListeners(), 1)

	c.RemoveListener(l1)
	require.Len(t, c.snapshotListeners(), 0)
}

func TestCommandFieldPosition_OnlyAppliesToCommandMode(t *testing.T) {
	merge, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"key", "command"})
	require.NoError(t, err)
	require.Equal(t, 0, commandFieldPosition(merge, commandFieldKey))

	cmd, err := NewSubscription(ModeCommand, []string{"item1"}, []string{"key", "command", "price"})
	require.NoError(t, err)
	require.Equal(t, 1, commandFieldPosition(cmd, commandFieldKey))
	require.Equal(t, 2, commandFieldPosition(cmd, commandFieldCommand))
}

func TestClient_SubscribeRejectsAlreadyActiveSubscription(t *testing.T) {
	c, err := NewClient("https://push.example.com", "")
	require.NoError(t, err)

	sub, err := NewSubscription(ModeMerge, []string{"item1"}, []string{"f1"})
	require.NoError(t, err)
	sub.markActive(1, map[string]int{"item1": 1}, map[string]int{"f1": 1}, 0, 0)

	require.Error(t, c.Subscribe(sub))
}
