package tlcpclient

import (
	"sync"

	"github.com/streamspace-dev/tlcp-client/internal/lserrors"
)

// CommandSecondLevelFields configures the field list requested for the
// per-key MERGE subscription the client transparently opens for every key
// a COMMAND-mode subscription reports via ADD (spec §4.2's two-level
// expansion). Must be set before the subscription is activated.
func (s *Subscription) SetCommandSecondLevelFields(fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeCommand {
		return lserrors.NewIllegalState("commandSecondLevelFields only applies to COMMAND-mode subscriptions")
	}
	if s.active {
		return lserrors.NewIllegalState("cannot change commandSecondLevelFields while subscription is active")
	}
	s.commandSecondLevelFields = append([]string(nil), fields...)
	return nil
}

func (s *Subscription) CommandSecondLevelFields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.commandSecondLevelFields...)
}

func (s *Subscription) SetCommandSecondLevelDataAdapter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeCommand {
		return lserrors.NewIllegalState("commandSecondLevelDataAdapter only applies to COMMAND-mode subscriptions")
	}
	s.commandSecondLevelDataAdapter = name
	return nil
}

func (s *Subscription) CommandSecondLevelDataAdapter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commandSecondLevelDataAdapter
}

// fieldPosMap and posFieldMap expose the position tables an ItemUpdate
// needs to resolve field names; both are built once at Subscribe time and
// are immutable afterward, so a snapshot copy isn't required.
func (s *Subscription) fieldPosMap() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fieldPos
}

func (s *Subscription) posFieldMap() map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]string, len(s.fieldPos))
	for name, pos := range s.fieldPos {
		out[pos] = name
	}
	return out
}

// secondLevelFieldPosMap/secondLevelPosFieldMap build the same lookup
// tables but for the synthesized per-key subscription's field list,
// shifted by offset so they land after the first-level fields in the
// merged row an ItemUpdate exposes for a COMMAND subscription's key.
func (s *Subscription) secondLevelFieldPosMap(offset int) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.commandSecondLevelFields))
	for i, f := range s.commandSecondLevelFields {
		out[f] = offset + i + 1
	}
	return out
}

func (s *Subscription) secondLevelPosFieldMap(offset int) map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]string, len(s.commandSecondLevelFields))
	for i, f := range s.commandSecondLevelFields {
		out[offset+i+1] = f
	}
	return out
}

// secondLevelTracker maps the subscription id of each synthesized per-key
// MERGE subscription back to its COMMAND parent and key, so the Client's
// Callbacks implementation can fold second-level item updates into the
// parent's rows instead of surfacing a subscription the caller never
// created directly.
type secondLevelTracker struct {
	mu      sync.RWMutex
	byKeyID map[int]secondLevelRef // second-level subID -> parent ref
}

type secondLevelRef struct {
	parentSubID int
	parentItem  int
	key         string
}

func newSecondLevelTracker() *secondLevelTracker {
	return &secondLevelTracker{byKeyID: make(map[int]secondLevelRef)}
}

func (t *secondLevelTracker) add(childSubID, parentSubID, parentItem int, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byKeyID[childSubID] = secondLevelRef{parentSubID: parentSubID, parentItem: parentItem, key: key}
}

func (t *secondLevelTracker) remove(childSubID int) (secondLevelRef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ref, ok := t.byKeyID[childSubID]
	delete(t.byKeyID, childSubID)
	return ref, ok
}

func (t *secondLevelTracker) lookup(childSubID int) (secondLevelRef, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ref, ok := t.byKeyID[childSubID]
	return ref, ok
}
