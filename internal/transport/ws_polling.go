package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSPolling dials a fresh WebSocket connection for each poll cycle, sends
// the current request body, reads until the server closes its end of that
// cycle's connection, then waits interval before dialing again. It exists
// for environments where a transparent proxy tolerates WebSocket but not
// long-lived HTTP streaming (spec §4.5.2's fallback rationale).
type WSPolling struct {
	log      zerolog.Logger
	dialer   *websocket.Dialer
	interval time.Duration

	mu      sync.Mutex
	url     string
	headers http.Header
	body    []byte
	lines   chan Line
	cancel  context.CancelFunc
}

func NewWSPolling(dialer *websocket.Dialer, interval time.Duration, log zerolog.Logger) *WSPolling {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WSPolling{
		dialer:   dialer,
		interval: interval,
		log:      log.With().Str("transport", string(KindWSPolling)).Logger(),
	}
}

func (t *WSPolling) Kind() Kind { return KindWSPolling }

func (t *WSPolling) Open(ctx context.Context, url string, body []byte, headers http.Header) error {
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.mu.Lock()
	t.url = url
	t.headers = headers.Clone()
	t.body = body
	t.lines = make(chan Line, 64)
	t.cancel = cancel
	t.mu.Unlock()

	go t.pollLoop(loopCtx)
	return nil
}

func (t *WSPolling) pollLoop(ctx context.Context) {
	for {
		if err := t.pollOnce(ctx); err != nil {
			t.lines <- Line{Err: err}
			close(t.lines)
			return
		}
		select {
		case <-ctx.Done():
			close(t.lines)
			return
		case <-time.After(t.interval):
		}
	}
}

func (t *WSPolling) pollOnce(ctx context.Context) error {
	t.mu.Lock()
	url, headers, body := t.url, t.headers, t.body
	t.mu.Unlock()

	conn, resp, err := t.dialer.DialContext(ctx, url, headers)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return fmt.Errorf("transport: dialing poll websocket (http status %d): %w", status, err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return fmt.Errorf("transport: sending poll frame: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("transport: reading poll response: %w", err)
		}
		t.lines <- Line{Text: string(data)}
	}
}

func (t *WSPolling) Send(ctx context.Context, body []byte) error {
	t.mu.Lock()
	t.body = body
	t.mu.Unlock()
	return nil
}

func (t *WSPolling) Lines() <-chan Line { return t.lines }

func (t *WSPolling) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}
