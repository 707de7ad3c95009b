// Package transport implements the four concrete stream-sense transports
// (spec §4.5.2): WS streaming, HTTP streaming, WS polling, and HTTP polling.
// Each satisfies the same narrow Transport interface so the session engine
// can swap between them without knowing which one is active, mirroring the
// teacher's leaderelection.leaderBackend pattern (one capability, several
// interchangeable implementations selected at runtime).
package transport

import (
	"context"
	"net/http"
)

// Kind names a concrete transport, used for logging and for the
// Status*-derived substate the engine reports to the caller.
type Kind string

const (
	KindWSStreaming   Kind = "WS-STREAMING"
	KindHTTPStreaming Kind = "HTTP-STREAMING"
	KindWSPolling     Kind = "WS-POLLING"
	KindHTTPPolling   Kind = "HTTP-POLLING"
)

// Line is one inbound protocol frame together with the error that ended the
// stream, if any. When the stream ends on an error, a Transport sends a
// final Line with a non-nil Err and then closes its Lines channel; the
// polling transports close Lines without such a Line when they are stopped
// between polls.
type Line struct {
	Text string
	Err  error
}

// Transport is the minimum surface the session engine needs from any of the
// four concrete transports. Open blocks until the connection is established
// (or fails); once open, inbound frames arrive on Lines and outbound
// requests are written with Send.
type Transport interface {
	Kind() Kind
	// Open establishes the underlying connection and begins delivering
	// frames on Lines. url is the fully-built endpoint URL including query
	// string; body is the POST body for the HTTP transports, and the
	// WebSocket transports send it as a text frame after the socket opens.
	Open(ctx context.Context, url string, body []byte, headers http.Header) error
	// Send hands the transport one more request body. HTTP streaming
	// does not support it and returns an error; WS streaming writes body
	// as a text frame on the open socket; the polling transports replace
	// the body they send with each later poll.
	Send(ctx context.Context, body []byte) error
	Lines() <-chan Line
	Close() error
}

// IsStreaming reports whether k keeps a long-lived connection open, as
// opposed to repeatedly polling.
func (k Kind) IsStreaming() bool {
	return k == KindWSStreaming || k == KindHTTPStreaming
}

// IsWebSocket reports whether k uses the WebSocket transport family.
func (k Kind) IsWebSocket() bool {
	return k == KindWSStreaming || k == KindWSPolling
}
