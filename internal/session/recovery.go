package session

import (
	"context"
	"net/http"

	"github.com/streamspace-dev/tlcp-client/internal/transport"
	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

// onKeepaliveTimeout fires when no frame of any kind (including PROBE) has
// arrived for KeepaliveInterval; it is the first line of stall detection
// and simply arms the stricter stalled timer (spec §4.5.3).
func (e *Engine) onKeepaliveTimeout(ctx context.Context) {
	e.timers.resetStalled(e.cfg.StalledTimeout)
}

// onStalledTimeout fires StalledTimeout after the keepalive grace period
// expired with still no frame: the connection is presumed dead and the
// engine enters STALLED, then immediately attempts recovery.
func (e *Engine) onStalledTimeout(ctx context.Context) {
	e.setStatus(StatusStalled)
	e.attemptRecovery(ctx, "stalled timeout")
}

func (e *Engine) onReconnectTimeout(ctx context.Context) {
	e.attemptRecovery(ctx, "reconnect timeout")
}

// attemptRecovery tries bind_session-based recovery if SessionRecoveryTimeout
// allows it, falling back to a brand-new session (via the normal retry path)
// when recovery isn't configured, has no session to recover, or its request
// fails outright (spec §4.5.4).
func (e *Engine) attemptRecovery(ctx context.Context, reason string) {
	e.log.Info().Str("reason", reason).Msg("attempting recovery")
	e.teardownTransport()

	e.mu.RLock()
	cfg := e.cfg
	sessionID := e.sessionID
	e.mu.RUnlock()

	if sessionID == "" || cfg.SessionRecoveryTimeout <= 0 {
		e.setStatus(StatusDisconnectedWillRetry)
		e.armRetry(cfg)
		return
	}

	e.setStatus(StatusDisconnectedTryingRecovery)
	e.recovering = true

	deadline, cancel := context.WithTimeout(ctx, cfg.SessionRecoveryTimeout)
	defer cancel()

	if e.tryBind(deadline, cfg, sessionID) {
		return
	}

	e.log.Warn().Msg("recovery window elapsed without a successful bind; starting a new session")
	e.mu.Lock()
	e.sessionID = ""
	e.mu.Unlock()
	e.doConnect(ctx, cfg)
}

func (e *Engine) tryBind(ctx context.Context, cfg Config, sessionID string) bool {
	for _, kind := range e.candidateTransports(cfg) {
		tr := e.buildTransport(kind, cfg)
		target := e.bindSessionURL(cfg, kind)
		body := e.bindSessionBody(sessionID)
		headers := http.Header{}
		for k, v := range cfg.HTTPExtraHeaders {
			headers.Set(k, v)
		}
		if err := tr.Open(ctx, target, body, headers); err != nil {
			e.log.Warn().Str("transport", string(kind)).Err(err).Msg("bind_session candidate failed")
			continue
		}
		e.mu.Lock()
		e.tr = tr
		e.mu.Unlock()
		e.setStatus(kindToStreamingStatus(kind))
		return true
	}
	return false
}

func (e *Engine) bindSessionURL(cfg Config, kind transport.Kind) string {
	addr := cfg.ServerAddress
	if kind.IsWebSocket() {
		addr = transport.WebSocketURL(addr)
	}
	return wire.BuildURL(addr, wire.EndpointBindSession, true)
}

func (e *Engine) bindSessionBody(sessionID string) []byte {
	req := wire.BindSessionRequest{
		SessionID: sessionID,
		Recovery:  true,
		Prog:      e.prog,
	}
	return []byte(req.Encode().Encode())
}

// onReverseHeartbeat sends an empty control request purely to keep any
// intermediate proxy's idle connection timeout from firing on the control
// channel, per spec §4.5.3.
func (e *Engine) onReverseHeartbeat(ctx context.Context) {
	e.mu.RLock()
	cfg := e.cfg
	sessionID := e.sessionID
	e.mu.RUnlock()
	if sessionID == "" || cfg.ReverseHeartbeatInterval <= 0 {
		return
	}
	req := wire.ReverseHeartbeatRequest{SessionID: sessionID, ReqID: e.nextRequestID()}
	if err := e.postControl(ctx, cfg, req.Encode()); err != nil {
		e.log.Debug().Err(err).Msg("reverse heartbeat failed")
	}
	e.timers.resetReverseHeartbeat(cfg.ReverseHeartbeatInterval)
}
