package session

import "time"

// Config is the immutable snapshot of connection parameters the engine
// reads when it opens a session. The root package's Client rebuilds and
// resends one with each Connect command; the engine never mutates it.
type Config struct {
	ServerAddress string
	AdapterSet    string
	User          string
	Password      string
	CID           string

	ContentLength            int64
	KeepaliveInterval        time.Duration
	StalledTimeout           time.Duration
	ReconnectTimeout         time.Duration
	IdleTimeout              time.Duration
	ReverseHeartbeatInterval time.Duration
	RetryDelay               time.Duration
	FirstRetryMaxDelay       time.Duration
	SessionRecoveryTimeout   time.Duration
	PollingInterval          time.Duration

	ForcedTransport       string
	RequestedMaxBandwidth float64
	HTTPExtraHeaders      map[string]string
}

// SubscribeSpec is everything the engine needs to build and send a
// subscribe control request; it is the session-package mirror of the root
// package's Subscription, built fresh by Client for every Subscribe call.
type SubscribeSpec struct {
	Mode           string
	Items          []string
	Fields         []string
	Group          string
	Schema         string
	DataAdapter    string
	MaxFrequency   float64
	BufferSize     int
	SnapshotArg    string
	Selector       string
	KeyPosition    int // 1-based, COMMAND mode only
	CommandPosition int // 1-based, COMMAND mode only
}
