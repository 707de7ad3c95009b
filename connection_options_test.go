package tlcpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestOptions() *ConnectionOptions {
	return newConnectionOptions(func(string) {})
}

func TestConnectionOptions_Defaults(t *testing.T) {
	o := newTestOptions()
	require.Equal(t, int64(50_000_000), o.ContentLength())
	require.Equal(t, 5*time.Second, o.KeepaliveInterval())
	require.Equal(t, 2*time.Second, o.StalledTimeout())
	require.Equal(t, "unlimited", o.RealMaxBandwidth())
}

func TestConnectionOptions_KeepaliveMustExceedStalledTimeout(t *testing.T) {
	o := newTestOptions()
	require.Error(t, o.SetKeepaliveInterval(1*time.Second))
	require.NoError(t, o.SetKeepaliveInterval(10*time.Second))
}

func TestConnectionOptions_StalledTimeoutMustBeBelowKeepalive(t *testing.T) {
	o := newTestOptions()
	require.Error(t, o.SetStalledTimeout(10*time.Second))
	require.NoError(t, o.SetStalledTimeout(1*time.Second))
}

func TestConnectionOptions_ForcedTransportRejectsUnknownValue(t *testing.T) {
	o := newTestOptions()
	require.Error(t, o.SetForcedTransport(ForcedTransport("bogus")))
	require.NoError(t, o.SetForcedTransport(ForcedTransportWS))
}

func TestConnectionOptions_ApplyRealMaxBandwidthTrimsAndReports(t *testing.T) {
	o := newTestOptions()
	o.applyRealMaxBandwidth(" 100.0 ")
	require.Equal(t, "100.0", o.RealMaxBandwidth())
}

func TestConnectionOptions_HTTPExtraHeadersIsDefensivelyCopied(t *testing.T) {
	o := newTestOptions()
	o.SetHTTPExtraHeaders(map[string]string{"X-Test": "1"})
	got := o.HTTPExtraHeaders()
	got["X-Test"] = "mutated"
	require.Equal(t, "1", o.HTTPExtraHeaders()["X-Test"])
}
