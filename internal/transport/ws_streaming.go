package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSStreaming keeps one WebSocket connection open for the lifetime of the
// session, grounded on the teacher's agent dial/reconnect loop but adapted
// to this package's Open/Send/Lines/Close shape instead of a standalone
// run loop.
type WSStreaming struct {
	log    zerolog.Logger
	dialer *websocket.Dialer

	mu    sync.Mutex
	conn  *websocket.Conn
	lines chan Line
}

func NewWSStreaming(dialer *websocket.Dialer, log zerolog.Logger) *WSStreaming {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WSStreaming{dialer: dialer, log: log.With().Str("transport", string(KindWSStreaming)).Logger()}
}

func (t *WSStreaming) Kind() Kind { return KindWSStreaming }

func (t *WSStreaming) Open(ctx context.Context, url string, body []byte, headers http.Header) error {
	conn, resp, err := t.dialer.DialContext(ctx, url, headers)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return fmt.Errorf("transport: dialing websocket (http status %d): %w", status, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.lines = make(chan Line, 64)
	t.mu.Unlock()

	if len(body) > 0 {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			conn.Close()
			return fmt.Errorf("transport: sending initial websocket frame: %w", err)
		}
	}

	go t.readLoop(conn)
	return nil
}

func (t *WSStreaming) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.log.Debug().Err(err).Msg("websocket read loop ending")
			t.lines <- Line{Err: err}
			close(t.lines)
			return
		}
		t.lines <- Line{Text: string(data)}
	}
}

func (t *WSStreaming) Send(ctx context.Context, body []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("transport: websocket not open")
	}
	return conn.WriteMessage(websocket.TextMessage, body)
}

func (t *WSStreaming) Lines() <-chan Line { return t.lines }

func (t *WSStreaming) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}
