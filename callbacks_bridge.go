package tlcpclient

import (
	"github.com/streamspace-dev/tlcp-client/internal/session"
	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

// This file implements session.Callbacks on *Client: the bridge between the
// engine goroutine's internal view of the world (subscription ids, raw
// field positions) and the public listener API (Subscription objects,
// named fields). Every method here runs on the engine goroutine and must
// never block on it; all it does is look up the affected Subscription (or
// Client) and hand a closure to the dispatch bus.

var _ session.Callbacks = (*Client)(nil)

func (c *Client) OnStatusChange(s session.Status) {
	status := Status(s)
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
	for _, l := range c.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnStatusChange(status) })
	}
}

func (c *Client) OnSessionBound(info session.SessionInfo) {
	c.details.applyServerAssigned(info.SessionID, info.ClientIP, info.ServerInstance, info.ServerSocketName)
}

func (c *Client) OnSessionEnded(code int, message string, willRetry bool) {
	c.details.clearSessionAssigned()
	if code != 0 {
		c.OnServerError(code, message)
	}
}

func (c *Client) OnServerError(code int, message string) {
	for _, l := range c.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnServerError(code, message) })
	}
}

func (c *Client) OnRealMaxBandwidth(bandwidth string) {
	c.options.applyRealMaxBandwidth(bandwidth)
}

func (c *Client) subscriptionFor(subID int) *Subscription {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return c.subsBySubID[subID]
}

func (c *Client) OnSubscriptionAck(subID, nItems, nFields int) {
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnSubscription() })
	}
}

func (c *Client) OnSubscriptionCommandAck(subID, nItems, nFields, keyPos, cmdPos int) {
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	sub.markActive(subID, sub.itemPos, sub.fieldPos, keyPos, cmdPos)
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnSubscription() })
	}
}

func (c *Client) OnUnsubscribed(subID int) {
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	sub.markInactive()
	c.subsMu.Lock()
	delete(c.subsBySubID, subID)
	c.subsMu.Unlock()
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnUnsubscription() })
	}
}

func (c *Client) OnSubscriptionError(subID, code int, message string) {
	if ref, ok := c.secondLevel.lookup(subID); ok {
		c.reportSecondLevelError(ref, code, message)
		return
	}
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnSubscriptionError(code, message) })
	}
}

func (c *Client) reportSecondLevelError(ref secondLevelRef, code int, message string) {
	sub := c.subscriptionFor(ref.parentSubID)
	if sub == nil {
		return
	}
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnCommandSecondLevelSubscriptionError(code, message, ref.key) })
	}
}

func (c *Client) OnRealMaxFrequency(subID int, frequency string) {
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	sub.applyRealMaxFrequency(frequency)
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnRealMaxFrequency(frequency) })
	}
}

func (c *Client) OnItemUpdate(subID, itemPos int, fields map[int]wire.FieldValue, changed map[int]bool, isSnapshot bool) {
	if ref, ok := c.secondLevel.lookup(subID); ok {
		c.applySecondLevelUpdate(ref, fields, changed)
		return
	}
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	sub.applyUpdateCache(itemPos, fields)
	update := &ItemUpdate{
		ItemName:   sub.itemName(itemPos),
		ItemPos:    itemPos,
		IsSnapshot: isSnapshot,
		fields:     fields,
		changed:    changed,
		fieldPos:   sub.fieldPosMap(),
		posField:   sub.posFieldMap(),
	}
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnItemUpdate(update) })
	}
}

// applySecondLevelUpdate folds a per-key MERGE subscription's update into
// an OnItemUpdate delivered against the COMMAND parent's row for that key,
// so callers see one coherent row per key instead of a hidden subscription
// they never created.
func (c *Client) applySecondLevelUpdate(ref secondLevelRef, fields map[int]wire.FieldValue, changed map[int]bool) {
	sub := c.subscriptionFor(ref.parentSubID)
	if sub == nil {
		return
	}
	offset := len(sub.Fields())
	merged := make(map[int]wire.FieldValue, len(fields))
	mergedChanged := make(map[int]bool, len(changed))
	for pos, v := range fields {
		merged[offset+pos] = v
	}
	for pos, v := range changed {
		mergedChanged[offset+pos] = v
	}
	sub.applySecondLevelCache(ref.parentItem, ref.key, merged)
	update := &ItemUpdate{
		ItemName:   ref.key,
		ItemPos:    ref.parentItem,
		fields:     merged,
		changed:    mergedChanged,
		fieldPos:   sub.secondLevelFieldPosMap(offset),
		posField:   sub.secondLevelPosFieldMap(offset),
	}
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnItemUpdate(update) })
	}
}

func (c *Client) OnEndOfSnapshot(subID, itemPos int) {
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	itemName := sub.itemName(itemPos)
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnEndOfSnapshot(itemName, itemPos) })
	}
}

func (c *Client) OnClearSnapshot(subID, itemPos int) {
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	itemName := sub.itemName(itemPos)
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnClearSnapshot(itemName, itemPos) })
	}
}

func (c *Client) OnLostUpdates(subID, itemPos, count int) {
	if ref, ok := c.secondLevel.lookup(subID); ok {
		sub := c.subscriptionFor(ref.parentSubID)
		if sub == nil {
			return
		}
		for _, l := range sub.snapshotListeners() {
			l := l
			c.bus.post(l, func() { l.OnCommandSecondLevelItemLostUpdates(count, ref.key) })
		}
		return
	}
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	itemName := sub.itemName(itemPos)
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnItemLostUpdates(itemName, itemPos, count) })
	}
}

func (c *Client) OnCommandKeyAdded(subID, itemPos int, key string) {
	sub := c.subscriptionFor(subID)
	if sub == nil || len(sub.CommandSecondLevelFields()) == 0 {
		return
	}
	go c.spawnSecondLevel(sub, subID, itemPos, key)
}

func (c *Client) OnCommandKeyRemoved(subID, itemPos int, key string) {
	var childID int
	for id, ref := range c.secondLevelSnapshot() {
		if ref.parentSubID == subID && ref.key == key {
			childID = id
			break
		}
	}
	if childID == 0 {
		return
	}
	c.engine.Unsubscribe(childID)
	c.secondLevel.remove(childID)
}

func (c *Client) secondLevelSnapshot() map[int]secondLevelRef {
	c.secondLevel.mu.RLock()
	defer c.secondLevel.mu.RUnlock()
	out := make(map[int]secondLevelRef, len(c.secondLevel.byKeyID))
	for k, v := range c.secondLevel.byKeyID {
		out[k] = v
	}
	return out
}

func (c *Client) spawnSecondLevel(sub *Subscription, parentSubID, parentItem int, key string) {
	spec := session.SubscribeSpec{
		Mode:        "MERGE",
		Items:       []string{key},
		Fields:      sub.CommandSecondLevelFields(),
		DataAdapter: sub.CommandSecondLevelDataAdapter(),
	}
	childID, err := c.engine.Subscribe(spec)
	if err != nil {
		c.reportSecondLevelError(secondLevelRef{parentSubID: parentSubID, parentItem: parentItem, key: key}, 0, err.Error())
		return
	}
	c.secondLevel.add(childID, parentSubID, parentItem, key)
}

func (c *Client) OnCommandSecondLevelError(subID, itemPos int, key string, code int, message string) {
	sub := c.subscriptionFor(subID)
	if sub == nil {
		return
	}
	for _, l := range sub.snapshotListeners() {
		l := l
		c.bus.post(l, func() { l.OnCommandSecondLevelSubscriptionError(code, message, key) })
	}
}

func (c *Client) OnMessageOutcome(sequence string, number int, outcome session.MessageOutcome, detail string) {
	c.msgMu.Lock()
	listener := c.msgListeners[sequence][number]
	if listener != nil {
		delete(c.msgListeners[sequence], number)
	}
	c.msgMu.Unlock()
	if listener == nil {
		return
	}
	switch MessageOutcome(outcome) {
	case MessageProcessed:
		c.bus.post(noopListenable{}, func() { listener.OnProcessed("", detail) })
	case MessageDenied:
		c.bus.post(noopListenable{}, func() { listener.OnDeny("", 0, detail) })
	case MessageDiscarded:
		c.bus.post(noopListenable{}, func() { listener.OnDiscarded("") })
	case MessageTimedOut:
		c.bus.post(noopListenable{}, func() { listener.OnTimeout("") })
	case MessageAborted:
		c.bus.post(noopListenable{}, func() { listener.OnAbort("", false) })
	}
}

// noopListenable lets ClientMessageListener callbacks travel through the
// same dispatch bus as every other listener without requiring
// ClientMessageListener to grow OnListenStart/OnListenEnd methods it has
// no use for.
type noopListenable struct{}

func (noopListenable) OnListenStart() {}
func (noopListenable) OnListenEnd()   {}
