package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/streamspace-dev/tlcp-client/internal/transport"
	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

// streamSenseOrder is the fallback sequence stream-sense walks when
// ForcedTransport is unset (spec §4.5.2): try WebSocket streaming first,
// fall back to HTTP streaming, and finally settle on HTTP polling, which
// every environment that can reach the server at all is assumed to permit.
var streamSenseOrder = []transport.Kind{
	transport.KindWSStreaming,
	transport.KindHTTPStreaming,
	transport.KindHTTPPolling,
}

func (e *Engine) doConnect(ctx context.Context, cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.setStatus(StatusConnecting)
	e.prog = 0

	candidates := e.candidateTransports(cfg)
	if len(candidates) == 0 {
		e.setStatus(StatusDisconnectedWillRetry)
		e.cb.OnServerError(-1, fmt.Sprintf("forced transport %q is not a recognized value", cfg.ForcedTransport))
		return
	}

	e.setStatus(StatusConnectedStreamSensing)
	for _, kind := range candidates {
		if e.tryOpen(ctx, cfg, kind) {
			return
		}
	}
	e.setStatus(StatusDisconnectedWillRetry)
	e.armRetry(cfg)
}

func (e *Engine) candidateTransports(cfg Config) []transport.Kind {
	switch cfg.ForcedTransport {
	case "", "WS":
		if cfg.ForcedTransport == "WS" {
			return []transport.Kind{transport.KindWSStreaming, transport.KindWSPolling}
		}
		return streamSenseOrder
	case "HTTP":
		return []transport.Kind{transport.KindHTTPStreaming, transport.KindHTTPPolling}
	case "WS-STREAMING":
		return []transport.Kind{transport.KindWSStreaming}
	case "HTTP-STREAMING":
		return []transport.Kind{transport.KindHTTPStreaming}
	case "WS-POLLING":
		return []transport.Kind{transport.KindWSPolling}
	case "HTTP-POLLING":
		return []transport.Kind{transport.KindHTTPPolling}
	default:
		return nil
	}
}

func (e *Engine) tryOpen(ctx context.Context, cfg Config, kind transport.Kind) bool {
	tr := e.buildTransport(kind, cfg)
	target := e.createSessionURL(cfg, kind)
	body := e.createSessionBody(cfg)
	headers := http.Header{}
	for k, v := range cfg.HTTPExtraHeaders {
		headers.Set(k, v)
	}

	if err := tr.Open(ctx, target, body, headers); err != nil {
		e.log.Warn().Str("transport", string(kind)).Err(err).Msg("stream-sense candidate failed")
		return false
	}

	e.mu.Lock()
	e.tr = tr
	e.mu.Unlock()
	e.setStatus(kindToStreamingStatus(kind))
	return true
}

func (e *Engine) buildTransport(kind transport.Kind, cfg Config) transport.Transport {
	switch kind {
	case transport.KindWSStreaming:
		return transport.NewWSStreaming(e.wsDialer, e.log)
	case transport.KindWSPolling:
		return transport.NewWSPolling(e.wsDialer, pollingInterval(cfg), e.log)
	case transport.KindHTTPStreaming:
		return transport.NewHTTPStreaming(e.httpClient, e.log)
	default:
		return transport.NewHTTPPolling(e.httpClient, pollingInterval(cfg), e.log)
	}
}

func pollingInterval(cfg Config) time.Duration {
	if cfg.PollingInterval > 0 {
		return cfg.PollingInterval
	}
	return 1 * time.Second
}

func kindToStreamingStatus(kind transport.Kind) Status {
	switch kind {
	case transport.KindWSStreaming:
		return StatusConnectedWSStreaming
	case transport.KindHTTPStreaming:
		return StatusConnectedHTTPStreaming
	case transport.KindWSPolling:
		return StatusConnectedWSPolling
	default:
		return StatusConnectedHTTPPolling
	}
}

func (e *Engine) createSessionURL(cfg Config, kind transport.Kind) string {
	addr := cfg.ServerAddress
	if kind.IsWebSocket() {
		addr = transport.WebSocketURL(addr)
	}
	return wire.BuildURL(addr, wire.EndpointCreateSession, true)
}

func (e *Engine) createSessionBody(cfg Config) []byte {
	req := wire.CreateSessionRequest{
		CID:           cfg.CID,
		AdapterSet:    cfg.AdapterSet,
		User:          cfg.User,
		Password:      cfg.Password,
		KeepaliveMs:   int(cfg.KeepaliveInterval / time.Millisecond),
		ContentLength: int(cfg.ContentLength),
	}
	return []byte(req.Encode().Encode())
}

func (e *Engine) doDisconnect(reason string) {
	e.log.Info().Str("reason", reason).Msg("disconnecting")
	e.teardownTransport()
	e.setStatus(StatusDisconnected)
	e.mu.Lock()
	e.sessionID = ""
	e.mu.Unlock()
	e.messages.abortAll(func(sequence string, number int) {
		e.cb.OnMessageOutcome(sequence, number, MessageAborted, "session closed")
	})
}

func (e *Engine) handleLine(ctx context.Context, line transport.Line) {
	if line.Err != nil {
		e.log.Warn().Err(line.Err).Msg("transport ended")
		e.onTransportLost(ctx)
		return
	}
	frame, err := wire.ParseFrame(line.Text)
	if err != nil {
		e.log.Warn().Err(err).Str("line", line.Text).Msg("unparseable frame")
		return
	}
	e.dispatchFrame(ctx, frame)
}

func (e *Engine) dispatchFrame(ctx context.Context, frame wire.Frame) {
	e.timers.resetIdle(e.cfg.IdleTimeout)
	e.timers.resetKeepalive(e.keepalive)
	e.timers.resetStalled(0)
	switch frame.Tag {
	case wire.TagCONOK:
		e.onCONOK(frame)
	case wire.TagCONERR:
		e.onCONERR(frame)
	case wire.TagEND:
		e.onEND(frame)
	case wire.TagPROBE:
		// keepalive from the server; resetting the timers above is the
		// only effect needed.
	case wire.TagLOOP:
		e.onLOOP(ctx)
	case wire.TagCONF:
		e.onCONF(frame)
	case wire.TagSUBOK:
		e.onSUBOK(frame)
	case wire.TagSUBCMD:
		e.onSUBCMD(frame)
	case wire.TagUNSUB:
		e.onUNSUB(frame)
	case wire.TagU:
		e.onUpdate(frame)
	case wire.TagEOS:
		e.onEOS(frame)
	case wire.TagCS:
		e.onCS(frame)
	case wire.TagOV:
		e.onOV(frame)
	case wire.TagMSGDONE:
		e.onMsgDone(frame)
	case wire.TagMSGFAIL:
		e.onMsgFail(frame)
	case wire.TagREQERR:
		e.onREQERR(frame)
	case wire.TagERROR:
		e.onERROR(frame)
	default:
		e.log.Debug().Str("tag", string(frame.Tag)).Msg("unhandled frame tag")
	}
}

func (e *Engine) onCONOK(frame wire.Frame) {
	data, err := wire.ParseCONOK(frame.Args)
	if err != nil {
		e.log.Warn().Err(err).Msg("malformed CONOK")
		return
	}
	e.mu.Lock()
	e.sessionID = data.SessionID
	e.reqLimit = data.RequestLimit
	e.keepalive = time.Duration(data.KeepaliveInterval) * time.Millisecond
	e.mu.Unlock()
	e.timers.resetKeepalive(e.keepalive)
	e.timers.resetReverseHeartbeat(e.cfg.ReverseHeartbeatInterval)
	e.recovering = false
	e.cb.OnSessionBound(SessionInfo{
		SessionID:       data.SessionID,
		RequestLimit:    data.RequestLimit,
		KeepaliveMillis: data.KeepaliveInterval,
	})
}

func (e *Engine) onCONERR(frame wire.Frame) {
	data, err := wire.ParseCONERR(frame.Args)
	if err != nil {
		e.log.Warn().Err(err).Msg("malformed CONERR")
		return
	}
	e.setStatus(StatusDisconnected)
	e.messages.abortAll(func(sequence string, number int) {
		e.cb.OnMessageOutcome(sequence, number, MessageAborted, "connection refused")
	})
	e.cb.OnServerError(data.Code, data.Message)
}

func (e *Engine) onEND(frame wire.Frame) {
	data, err := wire.ParseEND(frame.Args)
	if err != nil {
		e.log.Warn().Err(err).Msg("malformed END")
		return
	}
	e.teardownTransport()
	e.setStatus(StatusDisconnected)
	e.messages.abortAll(func(sequence string, number int) {
		e.cb.OnMessageOutcome(sequence, number, MessageAborted, "session ended")
	})
	e.cb.OnSessionEnded(data.Code, data.Message, data.Code == 0)
}

func (e *Engine) onLOOP(ctx context.Context) {
	// LOOP asks the client to close this connection and immediately issue
	// bind_session to resume the same session on a fresh one.
	e.attemptRecovery(ctx, "server requested LOOP")
}

func (e *Engine) onCONF(frame wire.Frame) {
	if len(frame.Args) == 0 {
		return
	}
	e.cb.OnRealMaxBandwidth(strings.TrimSpace(frame.Args[0]))
}

func (e *Engine) onTransportLost(ctx context.Context) {
	e.mu.RLock()
	status := e.status
	e.mu.RUnlock()
	if status == StatusDisconnected {
		return
	}
	e.attemptRecovery(ctx, "transport closed")
}

func (e *Engine) onUpdate(frame wire.Frame) {
	data, err := wire.ParseU(frame.Args)
	if err != nil {
		e.log.Warn().Err(err).Msg("malformed U frame")
		return
	}
	if err := e.reg.ApplyUpdate(data.SubID, data.ItemPos, data.Raw); err != nil {
		e.log.Warn().Err(err).Msg("applying update")
	}
}

func (e *Engine) onEOS(frame wire.Frame) {
	subID, itemPos, err := parseSubIDItemPos(frame.Args)
	if err != nil {
		return
	}
	e.reg.ApplyEndOfSnapshot(subID, itemPos)
}

func (e *Engine) onCS(frame wire.Frame) {
	subID, itemPos, err := parseSubIDItemPos(frame.Args)
	if err != nil {
		return
	}
	e.reg.ApplyClearSnapshot(subID, itemPos)
}

func (e *Engine) onOV(frame wire.Frame) {
	if len(frame.Args) < 3 {
		return
	}
	subID, itemPos, err := parseSubIDItemPos(frame.Args[:2])
	if err != nil {
		return
	}
	var count int
	if _, err := fmt.Sscanf(frame.Args[2], "%d", &count); err != nil {
		return
	}
	e.reg.ApplyLostUpdates(subID, itemPos, count)
}

func parseSubIDItemPos(args []string) (int, int, error) {
	n, rest, err := wire.ParseLeadingInt(args)
	if err != nil {
		return 0, 0, err
	}
	m, _, err := wire.ParseLeadingInt(rest)
	if err != nil {
		return 0, 0, err
	}
	return n, m, nil
}

func (e *Engine) onREQERR(frame wire.Frame) {
	data, err := wire.ParseREQERR(frame.Args)
	if err != nil {
		return
	}
	e.log.Warn().Int("reqId", data.ReqID).Int("code", data.Code).Str("message", data.Message).Msg("REQERR")
}

func (e *Engine) onERROR(frame wire.Frame) {
	if len(frame.Args) < 2 {
		return
	}
	var code int
	fmt.Sscanf(frame.Args[0], "%d", &code)
	e.cb.OnServerError(code, frame.Args[1])
}

func (e *Engine) armRetry(cfg Config) {
	e.timers.resetRetry(cfg.RetryDelay)
}

func (e *Engine) onRetryTimeout(ctx context.Context) {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()
	e.doConnect(ctx, cfg)
}
