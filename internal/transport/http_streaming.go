package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// HTTPStreaming keeps a single chunked-transfer HTTP response open and
// yields one Line per CRLF-terminated frame the server writes to it. The
// streaming connection is read-only once opened: Send always returns an
// error, and control requests go through the session engine's own HTTP
// client.
type HTTPStreaming struct {
	log    zerolog.Logger
	client *http.Client

	mu     sync.Mutex
	resp   *http.Response
	lines  chan Line
	cancel context.CancelFunc
}

func NewHTTPStreaming(client *http.Client, log zerolog.Logger) *HTTPStreaming {
	return &HTTPStreaming{client: client, log: log.With().Str("transport", string(KindHTTPStreaming)).Logger()}
}

func (t *HTTPStreaming) Kind() Kind { return KindHTTPStreaming }

func (t *HTTPStreaming) Open(ctx context.Context, url string, body []byte, headers http.Header) error {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return fmt.Errorf("transport: building http streaming request: %w", err)
	}
	req.Header = headers.Clone()
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("transport: opening http stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("transport: http stream returned status %d", resp.StatusCode)
	}

	t.mu.Lock()
	t.resp = resp
	t.lines = make(chan Line, 64)
	t.cancel = cancel
	t.mu.Unlock()

	go t.readLoop(resp.Body)
	return nil
}

func (t *HTTPStreaming) readLoop(body io.ReadCloser) {
	defer body.Close()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		t.lines <- Line{Text: line}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	t.log.Debug().Err(err).Msg("http stream closed")
	t.lines <- Line{Err: err}
	close(t.lines)
}

func (t *HTTPStreaming) Send(ctx context.Context, body []byte) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	// The streaming response cannot carry requests upstream, so Send sends
	// nothing and always returns an error; it exists to satisfy the
	// Transport interface. The session engine posts control requests with
	// its own *http.Client.
	_ = client
	return fmt.Errorf("transport: HTTPStreaming.Send is not used; issue control requests via the session engine's own http client")
}

func (t *HTTPStreaming) Lines() <-chan Line { return t.lines }

func (t *HTTPStreaming) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	if t.resp != nil {
		return t.resp.Body.Close()
	}
	return nil
}
