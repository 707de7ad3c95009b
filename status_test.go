package tlcpclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_IsConnected(t *testing.T) {
	require.True(t, StatusConnectedWSStreaming.IsConnected())
	require.False(t, StatusDisconnected.IsConnected())
}

func TestStatus_IsDisconnected(t *testing.T) {
	require.True(t, StatusDisconnectedWillRetry.IsDisconnected())
	require.False(t, StatusConnectedHTTPPolling.IsDisconnected())
}

func TestStatus_IsValid(t *testing.T) {
	require.True(t, StatusStalled.IsValid())
	require.False(t, Status("NOT-A-STATUS").IsValid())
}
