// Package session implements the engine: the single event loop that owns the
// active transport, the ten-state status machine, the timer families, session
// recovery, and outbound message sequencing (spec §4.5).
package session

// Status mirrors the ten states of spec §4.5.1. Defined locally (rather than
// imported from the root package) so this package has no dependency on it;
// the root façade converts with a simple string cast.
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

// transitions enumerates the canonical edges of spec §4.5.1 table. It is
// consulted only for the edges that can be driven purely by status pairs
// (user/engine-internal edges that depend on additional context, like
// "forced_transport reachable", are enforced in engine.go instead of here).
var transitions = map[Status]map[Status]bool{
	StatusDisconnected: {
		StatusConnecting: true,
	},
	StatusDisconnectedWillRetry: {
		StatusConnecting: true,
	},
	StatusDisconnectedTryingRecovery: {
		StatusConnectedWSStreaming:   true,
		StatusConnectedHTTPStreaming: true,
		StatusConnectedWSPolling:     true,
		StatusConnectedHTTPPolling:   true,
		StatusDisconnectedWillRetry:  true,
		StatusDisconnected:           true,
	},
	StatusConnecting: {
		StatusConnectedStreamSensing: true,
		StatusDisconnected:           true,
		StatusDisconnectedWillRetry:  true,
	},
	StatusConnectedStreamSensing: {
		StatusConnectedWSStreaming:   true,
		StatusConnectedHTTPStreaming: true,
		StatusConnectedHTTPPolling:   true,
		StatusDisconnected:           true,
	},
	StatusConnectedWSStreaming: {
		StatusStalled:              true,
		StatusConnectedWSPolling:   true,
		StatusDisconnected:         true,
	},
	StatusConnectedHTTPStreaming: {
		StatusStalled:      true,
		StatusDisconnected: true,
	},
	StatusConnectedWSPolling: {
		StatusDisconnected: true,
	},
	StatusConnectedHTTPPolling: {
		StatusDisconnected: true,
	},
	StatusStalled: {
		StatusConnectedWSStreaming:       true,
		StatusConnectedHTTPStreaming:     true,
		StatusDisconnectedTryingRecovery: true,
		StatusDisconnected:               true,
	},
}

// CanTransition reports whether from->to is a legal edge of the canonical
// table. Callers may still transition along edges not listed here only for
// the universal "user disconnect" and "CONERR/END" edges, which engine.go
// applies directly since they are valid from every state.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	if to == StatusDisconnected {
		return true // legal from any state: user disconnect, CONERR/END (spec §4.5.1)
	}
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}
