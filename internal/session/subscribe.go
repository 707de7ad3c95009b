package session

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/streamspace-dev/tlcp-client/internal/registry"
	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

func (e *Engine) doSubscribe(ctx context.Context, spec SubscribeSpec) (int, error) {
	e.mu.RLock()
	cfg := e.cfg
	sessionID := e.sessionID
	e.mu.RUnlock()
	if sessionID == "" {
		return 0, fmt.Errorf("session: cannot subscribe, no active session")
	}

	// Every mode but RAW starts in its snapshot phase unless the caller
	// explicitly asked for none (spec: default snapshot preference is
	// "yes" unless RAW, where it is disallowed).
	snapshotExpected := spec.Mode != "RAW" && spec.SnapshotArg != "false"
	subID := e.reg.Register(registry.Mode(spec.Mode), spec.KeyPosition, spec.CommandPosition, snapshotExpected)
	e.subMode[subID] = spec.Mode

	req := wire.SubscribeRequest{
		SessionID:   sessionID,
		ReqID:       e.nextRequestID(),
		SubID:       subID,
		Mode:        spec.Mode,
		Group:       spec.Group,
		Schema:      spec.Schema,
		DataAdapter: spec.DataAdapter,
		Snapshot:    spec.SnapshotArg,
		Selector:    spec.Selector,
	}
	if spec.MaxFrequency > 0 {
		req.MaxFrequency = strconv.FormatFloat(spec.MaxFrequency, 'f', -1, 64)
	}
	if spec.BufferSize > 0 {
		req.BufferSize = strconv.Itoa(spec.BufferSize)
	}
	if req.Group == "" {
		req.Group = joinItems(spec.Items)
	}
	if req.Schema == "" {
		req.Schema = joinItems(spec.Fields)
	}

	values, err := req.Encode()
	if err != nil {
		e.reg.Unregister(subID)
		delete(e.subMode, subID)
		return 0, fmt.Errorf("session: encoding subscribe request: %w", err)
	}
	if err := e.postControl(ctx, cfg, values); err != nil {
		e.reg.Unregister(subID)
		delete(e.subMode, subID)
		return 0, fmt.Errorf("session: subscribe request failed: %w", err)
	}
	return subID, nil
}

func (e *Engine) doUnsubscribe(ctx context.Context, subID int) {
	e.mu.RLock()
	cfg := e.cfg
	sessionID := e.sessionID
	e.mu.RUnlock()
	if sessionID == "" {
		return
	}
	req := wire.UnsubscribeRequest{SessionID: sessionID, ReqID: e.nextRequestID(), SubID: subID}
	if err := e.postControl(ctx, cfg, req.Encode()); err != nil {
		e.log.Warn().Err(err).Int("subId", subID).Msg("unsubscribe request failed")
		return
	}
	e.reg.Unregister(subID)
	delete(e.subMode, subID)
}

func (e *Engine) doChangeFrequency(ctx context.Context, subID int, freq float64) {
	e.mu.RLock()
	cfg := e.cfg
	sessionID := e.sessionID
	e.mu.RUnlock()
	if sessionID == "" {
		return
	}
	values := url.Values{}
	values.Set("LS_op", string(wire.OpChange))
	values.Set("LS_session", sessionID)
	values.Set("LS_reqId", strconv.Itoa(e.nextRequestID()))
	values.Set("LS_subId", strconv.Itoa(subID))
	values.Set("LS_requested_max_frequency", strconv.FormatFloat(freq, 'f', -1, 64))
	if err := e.postControl(ctx, cfg, values); err != nil {
		e.log.Warn().Err(err).Int("subId", subID).Msg("change frequency request failed")
	}
}

func joinItems(items []string) string {
	return strings.Join(items, " ")
}

func (e *Engine) onSUBOK(frame wire.Frame) {
	data, err := wire.ParseSUBOK(frame.Args)
	if err != nil {
		e.log.Warn().Err(err).Msg("malformed SUBOK")
		return
	}
	e.reg.SetFieldCount(data.SubID, data.NFields)
	e.cb.OnSubscriptionAck(data.SubID, data.NItems, data.NFields)
}

func (e *Engine) onSUBCMD(frame wire.Frame) {
	data, err := wire.ParseSUBCMD(frame.Args)
	if err != nil {
		e.log.Warn().Err(err).Msg("malformed SUBCMD")
		return
	}
	e.reg.SetFieldCount(data.SubID, data.NFields)
	e.cb.OnSubscriptionCommandAck(data.SubID, data.NItems, data.NFields, data.KeyPos, data.CmdPos)
}

func (e *Engine) onUNSUB(frame wire.Frame) {
	subID, _, err := wire.ParseLeadingInt(frame.Args)
	if err != nil {
		return
	}
	e.reg.Unregister(subID)
	delete(e.subMode, subID)
	e.cb.OnUnsubscribed(subID)
}
