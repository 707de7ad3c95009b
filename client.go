// Package tlcpclient implements a client for the TLCP-2.0.0 real-time push
// protocol: session lifecycle, automatic transport selection (WebSocket or
// HTTP, streaming or polling), subscription management including
// COMMAND-mode two-level key expansion, and outbound message sequencing.
//
// A Client owns exactly three logical execution contexts: its session
// engine goroutine, which is the only code that ever mutates connection
// state; its dispatch goroutine, which is the only caller of any
// ClientListener, SubscriptionListener, or ClientMessageListener method;
// and the caller's own goroutines, which only ever reach into the engine
// through its command channel. State changes and data arrive later through
// listeners. Client.Subscribe waits for the engine to post the subscribe
// control request and read its HTTP response; the other calls do not wait
// on network I/O.
package tlcpclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/streamspace-dev/tlcp-client/internal/lserrors"
	"github.com/streamspace-dev/tlcp-client/internal/session"
)

// ClientOption configures a Client at construction time.
type ClientOption func(*Client) error

// WithLogger overrides the client's zerolog instance. Each Client carries
// its own logger rather than writing through a package-level global, since
// spec §5 requires no shared mutable state between independent clients.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) error {
		c.log = log
		return nil
	}
}

// WithHTTPClient overrides the *http.Client used for HTTP transports and
// control requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		if hc == nil {
			return lserrors.NewIllegalArgument("httpClient", "must not be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithWebSocketDialer overrides the *websocket.Dialer used for WS
// transports, e.g. to install a ProxyDialer (SPEC_FULL.md §11).
func WithWebSocketDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) error {
		if d == nil {
			return lserrors.NewIllegalArgument("dialer", "must not be nil")
		}
		c.wsDialer = d
		return nil
	}
}

// ProxyDialer is the boundary a caller implements to route WebSocket
// traffic through an HTTP/SOCKS proxy, following gorilla/websocket's own
// NetDialContext hook shape. Named explicitly here (SPEC_FULL.md §11)
// rather than left as an unexported detail, since configuring a proxy is a
// first-class supported use case.
type ProxyDialer interface {
	DialContext(ctx context.Context, network, addr string) (dialResultConn, error)
}

// dialResultConn mirrors net.Conn's subset gorilla/websocket actually needs,
// kept local so this file doesn't import net just for the interface.
type dialResultConn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// WithDispatchQueueSize overrides the dispatch bus's queue capacity.
func WithDispatchQueueSize(n int) ClientOption {
	return func(c *Client) error {
		c.dispatchQueueSize = n
		return nil
	}
}

// Client is the library's public entry point. Construct with NewClient,
// configure ConnectionDetails()/ConnectionOptions(), register listeners,
// then call Connect.
type Client struct {
	log               zerolog.Logger
	httpClient        *http.Client
	wsDialer          *websocket.Dialer
	dispatchQueueSize int
	cid               string

	details *ConnectionDetails
	options *ConnectionOptions

	engine *session.Engine
	bus    *dispatchBus

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu        sync.RWMutex
	status    Status
	listeners []ClientListener

	subsMu      sync.RWMutex
	subsBySubID map[int]*Subscription

	secondLevel *secondLevelTracker

	msgMu        sync.Mutex
	msgListeners map[string]map[int]ClientMessageListener
}

// NewClient builds a Client targeting serverAddress under the given
// adapter set (DefaultAdapterSet if empty). The client does nothing until
// Connect is called.
func NewClient(serverAddress, adapterSet string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		log:               zerolog.Nop(),
		httpClient:        &http.Client{Timeout: 0},
		wsDialer:          websocket.DefaultDialer,
		dispatchQueueSize: 256,
		cid:               uuid.NewString(),
		status:            StatusDisconnected,
		subsBySubID:       make(map[int]*Subscription),
		secondLevel:       newSecondLevelTracker(),
		msgListeners:      make(map[string]map[int]ClientMessageListener),
	}
	c.details = newConnectionDetails(c.firePropertyChange)
	c.options = newConnectionOptions(c.firePropertyChange)

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.details.SetServerAddress(serverAddress); err != nil {
		return nil, err
	}
	if err := c.details.SetAdapterSet(adapterSet); err != nil {
		return nil, err
	}

	c.bus = newDispatchBus(c.dispatchQueueSize)
	c.engine = session.New(c, c.httpClient, c.wsDialer, c.log)
	return c, nil
}

func (c *Client) ConnectionDetails() *ConnectionDetails { return c.details }
func (c *Client) ConnectionOptions() *ConnectionOptions { return c.options }

func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Connect starts the session engine and dispatch bus (on first call) and
// asks the engine to establish a session. It returns immediately; progress
// is reported through ClientListener.OnStatusChange.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.ctx == nil {
		c.ctx, c.cancel = context.WithCancel(context.Background())
		g, gctx := errgroup.WithContext(c.ctx)
		c.group = g
		c.ctx = gctx
		c.engine.Start(c.ctx, c.group)
	}
	c.mu.Unlock()

	c.engine.Connect(session.Config{
		ServerAddress:            c.details.ServerAddress(),
		AdapterSet:               c.details.AdapterSet(),
		User:                     c.details.User(),
		Password:                 c.details.password_(),
		CID:                      c.cid,
		ContentLength:            c.options.ContentLength(),
		KeepaliveInterval:        c.options.KeepaliveInterval(),
		StalledTimeout:           c.options.StalledTimeout(),
		ReconnectTimeout:         c.options.ReconnectTimeout(),
		IdleTimeout:              c.options.IdleTimeout(),
		ReverseHeartbeatInterval: c.options.ReverseHeartbeatInterval(),
		RetryDelay:               c.options.RetryDelay(),
		FirstRetryMaxDelay:       c.options.FirstRetryMaxDelay(),
		SessionRecoveryTimeout:   c.options.SessionRecoveryTimeout(),
		PollingInterval:          c.options.PollingInterval(),
		ForcedTransport:          string(c.options.ForcedTransport()),
		RequestedMaxBandwidth:    c.options.RequestedMaxBandwidth(),
		HTTPExtraHeaders:         c.options.HTTPExtraHeaders(),
	})
	return nil
}

// Disconnect tears down the current session, if any, and stops the engine
// and dispatch goroutines. The Client cannot be reused after Disconnect;
// build a new one to reconnect.
func (c *Client) Disconnect() {
	c.engine.Disconnect()
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.bus.Close()
}

// WaitUntilConnected blocks until Status() reports a CONNECTED:* substate,
// ctx is canceled, or the client reaches DISCONNECTED after a connection
// attempt fails outright. Named explicitly (SPEC_FULL.md §11) as a
// convenience the protocol's async listener model otherwise leaves callers
// to hand-roll themselves.
func (c *Client) WaitUntilConnected(ctx context.Context) error {
	attempted := false
	for {
		s := c.Status()
		if s.IsConnected() {
			return nil
		}
		if s != StatusDisconnected {
			attempted = true
		} else if attempted {
			return lserrors.NewIllegalState("connection attempt ended in %s", s)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (c *Client) AddListener(l ClientListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.listeners {
		if existing == l {
			return
		}
	}
	c.listeners = append(c.listeners, l)
}

func (c *Client) RemoveListener(l ClientListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.listeners {
		if existing == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *Client) snapshotListeners() []ClientListener {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ClientListener(nil), c.listeners...)
}

func (c *Client) firePropertyChange(property string) {
	for _, l := range c.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnPropertyChange(property) })
	}
}

// Subscribe activates sub against the current session, assigning it a
// subscription id that only this Client instance knows about. sub must not
// already be active.
func (c *Client) Subscribe(sub *Subscription) error {
	if sub.IsActive() {
		return lserrors.NewIllegalState("subscription is already active")
	}
	spec := session.SubscribeSpec{
		Mode:            string(sub.Mode()),
		Items:           sub.Items(),
		Fields:          sub.Fields(),
		DataAdapter:     sub.DataAdapter(),
		MaxFrequency:    sub.RequestedMaxFrequency(),
		BufferSize:      sub.RequestedBufferSize(),
		Selector:        sub.Selector(),
		KeyPosition:     commandFieldPosition(sub, commandFieldKey),
		CommandPosition: commandFieldPosition(sub, commandFieldCommand),
	}
	if !sub.RequestedSnapshot().zero() {
		spec.SnapshotArg = sub.RequestedSnapshot().encode()
	}

	subID, err := c.engine.Subscribe(spec)
	if err != nil {
		return err
	}

	itemPos := make(map[string]int, len(spec.Items))
	for i, it := range spec.Items {
		itemPos[it] = i + 1
	}
	fieldPos := make(map[string]int, len(spec.Fields))
	for i, f := range spec.Fields {
		fieldPos[f] = i + 1
	}
	sub.markActive(subID, itemPos, fieldPos, spec.KeyPosition, spec.CommandPosition)

	c.subsMu.Lock()
	c.subsBySubID[subID] = sub
	c.subsMu.Unlock()
	return nil
}

// Unsubscribe deactivates sub. It is a no-op if sub is not currently active.
func (c *Client) Unsubscribe(sub *Subscription) {
	if !sub.IsActive() {
		return
	}
	subID := sub.id()
	c.engine.Unsubscribe(subID)
	c.subsMu.Lock()
	delete(c.subsBySubID, subID)
	c.subsMu.Unlock()
	sub.markInactive()
}

// ChangeSubscriptionFrequency asks the server to re-clamp sub's update rate
// without a full unsubscribe/resubscribe round trip.
func (c *Client) ChangeSubscriptionFrequency(sub *Subscription, freq float64) error {
	if !sub.IsActive() {
		return lserrors.NewIllegalState("subscription is not active")
	}
	if err := sub.SetRequestedMaxFrequency(freq); err != nil {
		return err
	}
	c.engine.ChangeFrequency(sub.id(), freq)
	return nil
}

// SendMessage submits text for server-side processing under the given
// named sequence. If listener is non-nil, its methods report the eventual
// outcome; pass a nil sequence-independent ordering guarantee only holds
// within one sequence name (spec §4.7).
func (c *Client) SendMessage(sequence, text string, maxWait time.Duration, listener ClientMessageListener) error {
	if sequence == "" {
		sequence = "UNORDERED_MESSAGES"
	}
	number, err := c.engine.SendMessage(sequence, 0, text, int64(maxWait/time.Millisecond))
	if err != nil {
		return err
	}
	if listener != nil {
		c.msgMu.Lock()
		if c.msgListeners[sequence] == nil {
			c.msgListeners[sequence] = make(map[int]ClientMessageListener)
		}
		c.msgListeners[sequence][number] = listener
		c.msgMu.Unlock()
	}
	return nil
}

func commandFieldPosition(sub *Subscription, which int) int {
	// Positions are resolved lazily from the field list a caller has
	// already validated to contain "key"/"command" at fixed indices for
	// COMMAND-mode subscriptions (spec §4.2); MERGE/DISTINCT/RAW
	// subscriptions never call this path with a non-zero result.
	if sub.Mode() != ModeCommand {
		return 0
	}
	fields := sub.Fields()
	for i, f := range fields {
		switch which {
		case commandFieldKey:
			if f == "key" {
				return i + 1
			}
		case commandFieldCommand:
			if f == "command" {
				return i + 1
			}
		}
	}
	return 0
}

const (
	commandFieldKey = iota
	commandFieldCommand
)
