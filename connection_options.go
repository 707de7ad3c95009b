package tlcpclient

import (
	"strings"
	"sync"
	"time"

	"github.com/streamspace-dev/tlcp-client/internal/lserrors"
)

// ForcedTransport restricts stream-sense to a single transport, or "" to let
// stream-sense pick (spec §4.5.2).
type ForcedTransport string

const (
	ForcedTransportNone         ForcedTransport = ""
	ForcedTransportWS           ForcedTransport = "WS"
	ForcedTransportHTTP         ForcedTransport = "HTTP"
	ForcedTransportWSStreaming  ForcedTransport = "WS-STREAMING"
	ForcedTransportHTTPStreaming ForcedTransport = "HTTP-STREAMING"
	ForcedTransportWSPolling    ForcedTransport = "WS-POLLING"
	ForcedTransportHTTPPolling  ForcedTransport = "HTTP-POLLING"
)

func (t ForcedTransport) valid() bool {
	switch t {
	case ForcedTransportNone, ForcedTransportWS, ForcedTransportHTTP,
		ForcedTransportWSStreaming, ForcedTransportHTTPStreaming,
		ForcedTransportWSPolling, ForcedTransportHTTPPolling:
		return true
	default:
		return false
	}
}

// ConnectionOptions groups the timer, bandwidth, and transport-selection
// parameters governing session behavior (spec §3, §4.5). The validating
// setters reject out-of-range arguments before committing the change. The
// only cross-field check is that the keepalive interval stays below the
// stalled timeout; the setters do not compare the stalled timeout with the
// reconnect timeout, the polling interval with the idle timeout, or the
// reverse heartbeat interval and session recovery timeout with the retry
// delay, and SetHTTPExtraHeaders does no validation.
type ConnectionOptions struct {
	mu sync.RWMutex

	contentLength          int64
	firstRetryMaxDelay     time.Duration
	forcedTransport        ForcedTransport
	httpExtraHeaders       map[string]string
	idleTimeout            time.Duration
	keepaliveInterval      time.Duration
	pollingInterval        time.Duration
	reconnectTimeout       time.Duration
	requestedMaxBandwidth  float64 // kbps; 0 = unlimited
	retryDelay             time.Duration
	reverseHeartbeatInterval time.Duration
	sessionRecoveryTimeout time.Duration
	stalledTimeout         time.Duration

	realMaxBandwidth string // server-reported clamp, read-only

	notify func(property string)
}

func newConnectionOptions(notify func(string)) *ConnectionOptions {
	return &ConnectionOptions{
		contentLength:            50_000_000,
		firstRetryMaxDelay:       100 * time.Millisecond,
		idleTimeout:              19 * time.Second,
		keepaliveInterval:        5 * time.Second,
		pollingInterval:          0,
		reconnectTimeout:         3 * time.Second,
		retryDelay:               4 * time.Second,
		reverseHeartbeatInterval: 0,
		sessionRecoveryTimeout:   15 * time.Second,
		stalledTimeout:           2 * time.Second,
		notify:                   notify,
	}
}

func (o *ConnectionOptions) fire(property string) {
	if o.notify != nil {
		o.notify(property)
	}
}

func (o *ConnectionOptions) ContentLength() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.contentLength
}

func (o *ConnectionOptions) SetContentLength(bytes int64) error {
	if bytes <= 0 {
		return lserrors.NewIllegalArgument("contentLength", "must be positive, got %d", bytes)
	}
	o.mu.Lock()
	o.contentLength = bytes
	o.mu.Unlock()
	o.fire("contentLength")
	return nil
}

func (o *ConnectionOptions) ForcedTransport() ForcedTransport {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.forcedTransport
}

func (o *ConnectionOptions) SetForcedTransport(t ForcedTransport) error {
	if !t.valid() {
		return lserrors.NewIllegalArgument("forcedTransport", "unrecognized value %q", string(t))
	}
	o.mu.Lock()
	o.forcedTransport = t
	o.mu.Unlock()
	o.fire("forcedTransport")
	return nil
}

func (o *ConnectionOptions) HTTPExtraHeaders() map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]string, len(o.httpExtraHeaders))
	for k, v := range o.httpExtraHeaders {
		out[k] = v
	}
	return out
}

func (o *ConnectionOptions) SetHTTPExtraHeaders(headers map[string]string) {
	cp := make(map[string]string, len(headers))
	for k, v := range headers {
		cp[k] = v
	}
	o.mu.Lock()
	o.httpExtraHeaders = cp
	o.mu.Unlock()
	o.fire("httpExtraHeaders")
}

func (o *ConnectionOptions) IdleTimeout() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.idleTimeout
}

func (o *ConnectionOptions) SetIdleTimeout(d time.Duration) error {
	if d < 0 {
		return lserrors.NewIllegalArgument("idleTimeout", "must be >= 0, got %s", d)
	}
	o.mu.Lock()
	o.idleTimeout = d
	o.mu.Unlock()
	o.fire("idleTimeout")
	return nil
}

func (o *ConnectionOptions) KeepaliveInterval() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.keepaliveInterval
}

// SetKeepaliveInterval sets the requested keepalive interval. It must be
// strictly greater than StalledTimeout, since a keepalive that arrives no
// more often than the stall detector's own tolerance can never prevent a
// spurious STALLED transition (spec §4.5.3 cross-field invariant).
func (o *ConnectionOptions) SetKeepaliveInterval(d time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d <= o.stalledTimeout {
		return lserrors.NewIllegalState("keepaliveInterval (%s) must be greater than stalledTimeout (%s)", d, o.stalledTimeout)
	}
	o.keepaliveInterval = d
	o.fire("keepaliveInterval")
	return nil
}

func (o *ConnectionOptions) StalledTimeout() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stalledTimeout
}

func (o *ConnectionOptions) SetStalledTimeout(d time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d <= 0 {
		return lserrors.NewIllegalArgument("stalledTimeout", "must be positive, got %s", d)
	}
	if d >= o.keepaliveInterval {
		return lserrors.NewIllegalState("stalledTimeout (%s) must be less than keepaliveInterval (%s)", d, o.keepaliveInterval)
	}
	o.stalledTimeout = d
	o.fire("stalledTimeout")
	return nil
}

func (o *ConnectionOptions) ReconnectTimeout() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.reconnectTimeout
}

func (o *ConnectionOptions) SetReconnectTimeout(d time.Duration) error {
	if d <= 0 {
		return lserrors.NewIllegalArgument("reconnectTimeout", "must be positive, got %s", d)
	}
	o.mu.Lock()
	o.reconnectTimeout = d
	o.mu.Unlock()
	o.fire("reconnectTimeout")
	return nil
}

func (o *ConnectionOptions) RetryDelay() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.retryDelay
}

func (o *ConnectionOptions) SetRetryDelay(d time.Duration) error {
	if d <= 0 {
		return lserrors.NewIllegalArgument("retryDelay", "must be positive, got %s", d)
	}
	o.mu.Lock()
	o.retryDelay = d
	o.mu.Unlock()
	o.fire("retryDelay")
	return nil
}

func (o *ConnectionOptions) SessionRecoveryTimeout() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sessionRecoveryTimeout
}

// SetSessionRecoveryTimeout sets how long the client attempts a
// bind_session-based recovery before giving up and creating a brand new
// session (spec §4.5.4). Zero disables recovery entirely.
func (o *ConnectionOptions) SetSessionRecoveryTimeout(d time.Duration) error {
	if d < 0 {
		return lserrors.NewIllegalArgument("sessionRecoveryTimeout", "must be >= 0, got %s", d)
	}
	o.mu.Lock()
	o.sessionRecoveryTimeout = d
	o.mu.Unlock()
	o.fire("sessionRecoveryTimeout")
	return nil
}

func (o *ConnectionOptions) ReverseHeartbeatInterval() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.reverseHeartbeatInterval
}

// SetReverseHeartbeatInterval sets the maximum gap between requests sent
// upstream on the control channel; 0 disables reverse heartbeats.
func (o *ConnectionOptions) SetReverseHeartbeatInterval(d time.Duration) error {
	if d < 0 {
		return lserrors.NewIllegalArgument("reverseHeartbeatInterval", "must be >= 0, got %s", d)
	}
	o.mu.Lock()
	o.reverseHeartbeatInterval = d
	o.mu.Unlock()
	o.fire("reverseHeartbeatInterval")
	return nil
}

func (o *ConnectionOptions) RequestedMaxBandwidth() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.requestedMaxBandwidth
}

func (o *ConnectionOptions) SetRequestedMaxBandwidth(kbps float64) error {
	if kbps < 0 {
		return lserrors.NewIllegalArgument("requestedMaxBandwidth", "must be >= 0, got %f", kbps)
	}
	o.mu.Lock()
	o.requestedMaxBandwidth = kbps
	o.mu.Unlock()
	o.fire("requestedMaxBandwidth")
	return nil
}

// RealMaxBandwidth reports the server-enforced clamp received in a CONF
// frame, or "unlimited" before one arrives.
func (o *ConnectionOptions) RealMaxBandwidth() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.realMaxBandwidth == "" {
		return "unlimited"
	}
	return o.realMaxBandwidth
}

func (o *ConnectionOptions) applyRealMaxBandwidth(v string) {
	o.mu.Lock()
	o.realMaxBandwidth = strings.TrimSpace(v)
	o.mu.Unlock()
	o.fire("realMaxBandwidth")
}

func (o *ConnectionOptions) PollingInterval() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pollingInterval
}

func (o *ConnectionOptions) SetPollingInterval(d time.Duration) error {
	if d < 0 {
		return lserrors.NewIllegalArgument("pollingInterval", "must be >= 0, got %s", d)
	}
	o.mu.Lock()
	o.pollingInterval = d
	o.mu.Unlock()
	o.fire("pollingInterval")
	return nil
}

func (o *ConnectionOptions) FirstRetryMaxDelay() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.firstRetryMaxDelay
}

func (o *ConnectionOptions) SetFirstRetryMaxDelay(d time.Duration) error {
	if d <= 0 {
		return lserrors.NewIllegalArgument("firstRetryMaxDelay", "must be positive, got %s", d)
	}
	o.mu.Lock()
	o.firstRetryMaxDelay = d
	o.mu.Unlock()
	o.fire("firstRetryMaxDelay")
	return nil
}
