package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/streamspace-dev/tlcp-client/internal/registry"
	"github.com/streamspace-dev/tlcp-client/internal/transport"
	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

// Engine is the sole mutator of session state (spec §5): one goroutine runs
// Engine.run, reading commands off cmdCh and frames off the active
// transport, and is the only code in the process allowed to change status,
// the active transport, or the registry.
type Engine struct {
	log zerolog.Logger
	cb  Callbacks

	httpClient *http.Client
	wsDialer   *websocket.Dialer

	cmdCh chan command

	mu         sync.RWMutex
	status     Status
	cfg        Config
	sessionID  string
	reqLimit   int
	keepalive  time.Duration

	reg *registry.Registry
	tr  transport.Transport

	nextReqID  int
	prog       int64
	subMode    map[int]string // subID -> mode, needed when building unsubscribe/control requests

	messages *messageQueue
	timers   *timerSet

	recovering bool
}

// New builds an Engine. Nothing runs until Start is called.
func New(cb Callbacks, httpClient *http.Client, wsDialer *websocket.Dialer, log zerolog.Logger) *Engine {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if wsDialer == nil {
		wsDialer = websocket.DefaultDialer
	}
	e := &Engine{
		log:        log.With().Str("component", "session-engine").Logger(),
		cb:         cb,
		httpClient: httpClient,
		wsDialer:   wsDialer,
		cmdCh:      make(chan command, 32),
		status:     StatusDisconnected,
		subMode:    make(map[int]string),
		messages:   newMessageQueue(),
	}
	e.reg = registry.New(&registrySink{e: e})
	e.timers = newTimerSet()
	return e
}

// Start runs the engine loop under g until ctx is canceled. It must be
// called exactly once.
func (e *Engine) Start(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		return e.run(ctx)
	})
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) Connect(cfg Config) {
	e.cmdCh <- command{kind: cmdConnect, connectCfg: cfg}
}

func (e *Engine) Disconnect() {
	e.cmdCh <- command{kind: cmdDisconnect}
}

func (e *Engine) Subscribe(spec SubscribeSpec) (int, error) {
	res := make(chan subscribeResult, 1)
	e.cmdCh <- command{kind: cmdSubscribe, subscribe: spec, subscribeRes: res}
	r := <-res
	return r.subID, r.err
}

func (e *Engine) Unsubscribe(subID int) {
	e.cmdCh <- command{kind: cmdUnsubscribe, subID: subID}
}

func (e *Engine) ChangeFrequency(subID int, freq float64) {
	e.cmdCh <- command{kind: cmdChangeFrequency, subID: subID, freq: freq}
}

// SendMessage hands text to the engine for sending under sequence and
// returns the progressive number assigned to it before any network I/O
// happens, so the caller can correlate a later outcome callback against a
// message it hasn't finished sending yet.
func (e *Engine) SendMessage(sequence string, number int, text string, maxWaitMillis int64) (int, error) {
	resCh := make(chan sendMessageResult, 1)
	e.cmdCh <- command{
		kind:       cmdSendMessage,
		msg:        outboundMsg{sequence: sequence, number: number, text: text, maxWait: maxWaitMillis},
		msgSentRes: resCh,
	}
	r := <-resCh
	return r.number, r.err
}

func (e *Engine) run(ctx context.Context) error {
	for {
		var lines <-chan transport.Line
		e.mu.RLock()
		if e.tr != nil {
			lines = e.tr.Lines()
		}
		e.mu.RUnlock()

		select {
		case <-ctx.Done():
			e.teardownTransport()
			return nil
		case cmd := <-e.cmdCh:
			e.handleCommand(ctx, cmd)
		case line, ok := <-lines:
			if !ok {
				continue
			}
			e.handleLine(ctx, line)
		case <-e.timers.stalled.C:
			e.onStalledTimeout(ctx)
		case <-e.timers.keepalive.C:
			e.onKeepaliveTimeout(ctx)
		case <-e.timers.reconnect.C:
			e.onReconnectTimeout(ctx)
		case <-e.timers.retry.C:
			e.onRetryTimeout(ctx)
		case <-e.timers.reverseHeartbeat.C:
			e.onReverseHeartbeat(ctx)
		}
	}
}

func (e *Engine) handleCommand(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdConnect:
		e.doConnect(ctx, cmd.connectCfg)
	case cmdDisconnect:
		e.doDisconnect("client requested disconnect")
	case cmdSubscribe:
		subID, err := e.doSubscribe(ctx, cmd.subscribe)
		cmd.subscribeRes <- subscribeResult{subID: subID, err: err}
	case cmdUnsubscribe:
		e.doUnsubscribe(ctx, cmd.subID)
	case cmdChangeFrequency:
		e.doChangeFrequency(ctx, cmd.subID, cmd.freq)
	case cmdSendMessage:
		cmd.msgSentRes <- e.doSendMessage(ctx, cmd.msg)
	}
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	prev := e.status
	if prev == s {
		e.mu.Unlock()
		return
	}
	e.status = s
	e.mu.Unlock()
	e.log.Info().Str("from", string(prev)).Str("to", string(s)).Msg("status change")
	e.cb.OnStatusChange(s)
}

func (e *Engine) nextRequestID() int {
	e.nextReqID++
	return e.nextReqID
}

// controlURL builds the control_url endpoint, which per spec §6 is always a
// plain HTTP POST regardless of which transport the main stream uses.
func (e *Engine) controlURL(cfg Config) string {
	return wire.BuildURL(cfg.ServerAddress, wire.EndpointControl, false)
}

func (e *Engine) postControl(ctx context.Context, cfg Config, values url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.controlURL(cfg), strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("session: building control request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range cfg.HTTPExtraHeaders {
		req.Header.Set(k, v)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session: control request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session: control request returned status %d", resp.StatusCode)
	}
	return nil
}

func (e *Engine) teardownTransport() {
	e.mu.Lock()
	tr := e.tr
	e.tr = nil
	e.mu.Unlock()
	if tr != nil {
		_ = tr.Close()
	}
	e.timers.stopAll()
}

// registrySink adapts registry.Sink to the engine's Callbacks.
type registrySink struct{ e *Engine }

func (s *registrySink) ItemUpdate(subID, itemPos int, fields map[int]wire.FieldValue, changed map[int]bool, isSnapshot bool) {
	s.e.cb.OnItemUpdate(subID, itemPos, fields, changed, isSnapshot)
}
func (s *registrySink) EndOfSnapshot(subID, itemPos int) { s.e.cb.OnEndOfSnapshot(subID, itemPos) }
func (s *registrySink) ClearSnapshot(subID, itemPos int) { s.e.cb.OnClearSnapshot(subID, itemPos) }
func (s *registrySink) LostUpdates(subID, itemPos, n int) {
	s.e.cb.OnLostUpdates(subID, itemPos, n)
}
func (s *registrySink) CommandKeyAdded(subID, itemPos int, key string) {
	s.e.cb.OnCommandKeyAdded(subID, itemPos, key)
}
func (s *registrySink) CommandKeyRemoved(subID, itemPos int, key string) {
	s.e.cb.OnCommandKeyRemoved(subID, itemPos, key)
}
func (s *registrySink) CommandSecondLevelError(subID, itemPos int, key string, code int, message string) {
	s.e.cb.OnCommandSecondLevelError(subID, itemPos, key, code, message)
}
