package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HTTPPolling repeatedly issues short-lived POST requests and delivers the
// full response body as a burst of Lines after each one completes, rather
// than holding a connection open. The session engine is responsible for
// updating the request body (LS_prog cursor, recovery markers) between
// polls; HTTPPolling itself only knows how to keep reissuing whatever body
// was last handed to it via Open/Send.
type HTTPPolling struct {
	log    zerolog.Logger
	client *http.Client
	interval time.Duration

	mu      sync.Mutex
	url     string
	headers http.Header
	body    []byte
	lines   chan Line
	cancel  context.CancelFunc
}

func NewHTTPPolling(client *http.Client, interval time.Duration, log zerolog.Logger) *HTTPPolling {
	return &HTTPPolling{
		client:   client,
		interval: interval,
		log:      log.With().Str("transport", string(KindHTTPPolling)).Logger(),
	}
}

func (t *HTTPPolling) Kind() Kind { return KindHTTPPolling }

func (t *HTTPPolling) Open(ctx context.Context, url string, body []byte, headers http.Header) error {
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

func (t *HTTPPolling) pollLoop(ctx context.Context) {
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

func (t *HTTPPolling) pollOnce(ctx context.Context) error {
	t.mu.Lock()
	url, headers, body := t.url, t.headers, t.body
	t.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: building poll request: %w", err)
	}
	req.Header = headers.Clone()
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport: polling: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: poll returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("transport: reading poll response: %w", err)
	}
	for _, line := range strings.Split(string(data), "\r\n") {
		if line == "" {
			continue
		}
		t.lines <- Line{Text: line}
	}
	return nil
}

func (t *HTTPPolling) Send(ctx context.Context, body []byte) error {
	t.mu.Lock()
	t.body = body
	t.mu.Unlock()
	return nil
}

func (t *HTTPPolling) Lines() <-chan Line { return t.lines }

func (t *HTTPPolling) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}
