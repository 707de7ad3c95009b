package tlcpclient

// Status is one of the ten client connection states defined by spec §4.5.1.
// It is always one of the exported Status* constants; there is no "unknown"
// value (P5).
type Status string

const (
	StatusDisconnected               Status = "DISCONNECTED"
	StatusDisconnectedWillRetry      Status = "DISCONNECTED:WILL-RETRY"
	StatusDisconnectedTryingRecovery Status = "DISCONNECTED:TRYING-RECOVERY"
	StatusConnecting                Status = "CONNECTING"
	StatusConnectedStreamSensing     Status = "CONNECTED:STREAM-SENSING"
	StatusConnectedWSStreaming       Status = "CONNECTED:WS-STREAMING"
	StatusConnectedHTTPStreaming     Status = "CONNECTED:HTTP-STREAMING"
	StatusConnectedWSPolling         Status = "CONNECTED:WS-POLLING"
	StatusConnectedHTTPPolling       Status = "CONNECTED:HTTP-POLLING"
	StatusStalled                    Status = "STALLED"
)

// IsValid reports whether s is one of the ten enumerated status values.
func (s Status) IsValid() bool {
	switch s {
	case StatusDisconnected, StatusDisconnectedWillRetry, StatusDisconnectedTryingRecovery,
		StatusConnecting, StatusConnectedStreamSensing, StatusConnectedWSStreaming,
		StatusConnectedHTTPStreaming, StatusConnectedWSPolling, StatusConnectedHTTPPolling,
		StatusStalled:
		return true
	default:
		return false
	}
}

// IsConnected reports whether s is one of the CONNECTED:* substates.
func (s Status) IsConnected() bool {
	switch s {
	case StatusConnectedStreamSensing, StatusConnectedWSStreaming, StatusConnectedHTTPStreaming,
		StatusConnectedWSPolling, StatusConnectedHTTPPolling:
		return true
	default:
		return false
	}
}

// IsDisconnected reports whether s is DISCONNECTED or one of its substates.
func (s Status) IsDisconnected() bool {
	switch s {
	case StatusDisconnected, StatusDisconnectedWillRetry, StatusDisconnectedTryingRecovery:
		return true
	default:
		return false
	}
}
