// Package registry tracks active subscriptions by subscription id, replays
// the wire package's delta-delivery reconstruction against a per-item field
// cache, and drives COMMAND-mode two-level key expansion (spec §4.2).
//
// Registry holds no reference to the public Subscription type: it is wired
// below the root package, not above it, and speaks only in subscription ids
// and raw field positions. The root package's Client is the Sink that
// translates those into ItemUpdate values against the caller's
// *Subscription objects.
package registry

import (
	"fmt"
	"sync"

	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

// Mode mirrors the four subscription modes, duplicated here (rather than
// imported from the root package) to keep this package import-free of it.
type Mode string

const (
	ModeMerge    Mode = "MERGE"
	ModeDistinct Mode = "DISTINCT"
	ModeRaw      Mode = "RAW"
	ModeCommand  Mode = "COMMAND"
)

// Sink receives every effect the registry produces. Implemented by the root
// package's Client, which is responsible for locating the *Subscription
// for a subID and delivering the call to its listeners via the dispatch
// bus.
type Sink interface {
	ItemUpdate(subID, itemPos int, fields map[int]wire.FieldValue, changed map[int]bool, isSnapshot bool)
	EndOfSnapshot(subID, itemPos int)
	ClearSnapshot(subID, itemPos int)
	LostUpdates(subID, itemPos, count int)
	CommandKeyAdded(subID, itemPos int, key string)
	CommandKeyRemoved(subID, itemPos int, key string)
	CommandSecondLevelError(subID, itemPos int, key string, code int, message string)
}

type entry struct {
	mode    Mode
	keyPos  int // 1-based; 0 if not COMMAND
	cmdPos  int // 1-based; 0 if not COMMAND
	nFields int // total field count, set once SUBOK/SUBCMD reports it

	itemCache map[int]map[int]wire.FieldValue // itemPos -> field cache
	keys      map[int]map[string]bool         // itemPos -> active key set (COMMAND only)

	snapshotExpected bool
	inSnapshot       map[int]bool // itemPos -> still before EOS; nil if snapshotExpected is false
}

// Registry is safe for concurrent use, but spec §4.5's single-engine-goroutine
// discipline means in practice only the engine ever calls it.
type Registry struct {
	mu        sync.Mutex
	sink      Sink
	entries   map[int]*entry
	nextSubID int
}

func New(sink Sink) *Registry {
	return &Registry{
		sink:    sink,
		entries: make(map[int]*entry),
	}
}

// Register allocates a new subscription id and begins tracking it. keyPos
// and cmdPos are ignored (and should be 0) for non-COMMAND modes.
// snapshotExpected tells ApplyUpdate whether updates for this subscription's
// items start out as snapshot updates (spec: true for every mode but RAW,
// unless the caller explicitly requested no snapshot).
func (r *Registry) Register(mode Mode, keyPos, cmdPos int, snapshotExpected bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSubID++
	id := r.nextSubID
	e := &entry{
		mode:             mode,
		keyPos:           keyPos,
		cmdPos:           cmdPos,
		itemCache:        make(map[int]map[int]wire.FieldValue),
		snapshotExpected: snapshotExpected,
	}
	if mode == ModeCommand {
		e.keys = make(map[int]map[string]bool)
	}
	if snapshotExpected {
		e.inSnapshot = make(map[int]bool)
	}
	r.entries[id] = e
	return id
}

// SetFieldCount records the subscription's total field count once SUBOK or
// SUBCMD reports it, so a later COMMAND DELETE knows how many non-key
// fields to null (see applyCommandSemantics). A no-op for an unknown subID.
func (r *Registry) SetFieldCount(subID, n int) {
	r.mu.Lock()
	if e, ok := r.entries[subID]; ok {
		e.nFields = n
	}
	r.mu.Unlock()
}

// Unregister drops all cached state for subID; it is a no-op if subID is
// unknown (e.g. a duplicate UNSUB for an id already torn down).
func (r *Registry) Unregister(subID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, subID)
}

// ApplyUpdate reconstructs one item's field vector from raw wire tokens,
// updates the cache, and notifies the sink. Whether this particular update
// is a snapshot update is tracked internally per (subID, itemPos): every
// item starts in its subscription's snapshot phase (if one is expected)
// and leaves it at the matching EndOfSnapshot.
func (r *Registry) ApplyUpdate(subID, itemPos int, tokens []string) error {
	r.mu.Lock()
	e, ok := r.entries[subID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("registry: update for unknown subscription %d", subID)
	}
	prev := e.itemCache[itemPos]
	next, changed, err := wire.ReconstructFields(prev, tokens)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry: subscription %d item %d: %w", subID, itemPos, err)
	}

	var keyEvent func()
	if e.mode == ModeCommand && e.keyPos > 0 && e.cmdPos > 0 {
		keyEvent = r.applyCommandSemantics(e, subID, itemPos, next, changed)
	}
	e.itemCache[itemPos] = next

	isSnapshot := false
	if e.snapshotExpected {
		inSnap, seen := e.inSnapshot[itemPos]
		if !seen {
			inSnap = true
			e.inSnapshot[itemPos] = true
		}
		isSnapshot = inSnap
	}
	r.mu.Unlock()

	r.sink.ItemUpdate(subID, itemPos, next, changed, isSnapshot)
	if keyEvent != nil {
		keyEvent()
	}
	return nil
}

func (r *Registry) ApplyEndOfSnapshot(subID, itemPos int) {
	r.mu.Lock()
	if e, ok := r.entries[subID]; ok && e.inSnapshot != nil {
		e.inSnapshot[itemPos] = false
	}
	r.mu.Unlock()
	r.sink.EndOfSnapshot(subID, itemPos)
}

func (r *Registry) ApplyClearSnapshot(subID, itemPos int) {
	r.mu.Lock()
	if e, ok := r.entries[subID]; ok {
		delete(e.itemCache, itemPos)
		if e.keys != nil {
			delete(e.keys, itemPos)
		}
		if e.inSnapshot != nil {
			// A fresh snapshot is coming for this item; re-enter its
			// snapshot phase instead of leaving it permanently false.
			delete(e.inSnapshot, itemPos)
		}
	}
	r.mu.Unlock()
	r.sink.ClearSnapshot(subID, itemPos)
}

func (r *Registry) ApplyLostUpdates(subID, itemPos, count int) {
	r.sink.LostUpdates(subID, itemPos, count)
}
