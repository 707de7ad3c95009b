package tlcpclient

import (
	"strconv"
	"sync"

	"github.com/streamspace-dev/tlcp-client/internal/lserrors"
	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

// Mode is a subscription delivery mode (spec §3).
type Mode string

const (
	ModeMerge    Mode = "MERGE"
	ModeDistinct Mode = "DISTINCT"
	ModeRaw      Mode = "RAW"
	ModeCommand  Mode = "COMMAND"
)

func (m Mode) valid() bool {
	switch m {
	case ModeMerge, ModeDistinct, ModeRaw, ModeCommand:
		return true
	default:
		return false
	}
}

// Snapshot requests server-side snapshot delivery for a subscription. Its
// three states (spec's original_source treats this as a loosely-typed
// union of bool/int/"yes") are made a proper enum here rather than carried
// as an untyped value, per SPEC_FULL.md §11.
type Snapshot struct {
	kind snapshotKind
	n    int
}

type snapshotKind int

const (
	snapshotYes snapshotKind = iota
	snapshotNo
	snapshotLength
)

func SnapshotYes() Snapshot               { return Snapshot{kind: snapshotYes} }
func SnapshotNo() Snapshot                { return Snapshot{kind: snapshotNo} }
func SnapshotLength(n int) Snapshot       { return Snapshot{kind: snapshotLength, n: n} }
func (s Snapshot) zero() bool             { return s.kind == 0 && s.n == 0 }

func (s Snapshot) encode() string {
	switch s.kind {
	case snapshotNo:
		return "false"
	case snapshotLength:
		return strconv.Itoa(s.n)
	default:
		return "true"
	}
}

// Subscription represents one client subscription (spec §3, §4.2). A
// COMMAND-mode subscription transparently owns a set of second-level MERGE
// subscriptions, one per active key, which the Client spawns and tears down
// as internal/registry reports keys; none of that machinery is visible on
// this type.
type Subscription struct {
	mu sync.RWMutex

	mode         Mode
	items        []string
	fields       []string
	group        string // alternative to items: item group name
	schema       string // alternative to fields: field schema name
	dataAdapter  string
	requestedMaxFrequency float64 // updates/sec; 0 = unlimited
	requestedBufferSize   int     // 0 = unlimited
	snapshot     Snapshot
	selector     string

	subID        int // assigned by the engine once active; 0 when inactive
	active       bool

	listeners []SubscriptionListener

	itemPos map[string]int // 1-based position, populated once active
	fieldPos map[string]int

	realMaxFrequency string
	commandPosition  int
	keyPosition      int

	commandSecondLevelFields      []string
	commandSecondLevelDataAdapter string

	values        map[[2]int]wire.FieldValue              // (itemPos, fieldPos) -> last value
	commandValues map[int]map[string]map[int]wire.FieldValue // itemPos -> key -> fieldPos -> last value
}

// NewSubscription validates and builds a subscription in inactive state. It
// must be passed to Client.Subscribe before it starts receiving updates.
func NewSubscription(mode Mode, items, fields []string) (*Subscription, error) {
	if !mode.valid() {
		return nil, lserrors.NewIllegalArgument("mode", "unrecognized mode %q", string(mode))
	}
	if len(items) == 0 {
		return nil, lserrors.NewIllegalArgument("items", "must not be empty")
	}
	if len(fields) == 0 {
		return nil, lserrors.NewIllegalArgument("fields", "must not be empty")
	}
	for _, it := range items {
		if err := validateNoComma("item", it); err != nil {
			return nil, err
		}
	}
	for _, f := range fields {
		if err := validateNoComma("field", f); err != nil {
			return nil, err
		}
	}
	return &Subscription{
		mode:   mode,
		items:  append([]string(nil), items...),
		fields: append([]string(nil), fields...),
	}, nil
}

func (s *Subscription) Mode() Mode { return s.mode }

func (s *Subscription) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.items...)
}

func (s *Subscription) Fields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.fields...)
}

func (s *Subscription) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Subscription) DataAdapter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataAdapter
}

// SetDataAdapter must be called before the subscription is made active.
func (s *Subscription) SetDataAdapter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return lserrors.NewIllegalState("cannot change dataAdapter while subscription is active")
	}
	s.dataAdapter = name
	return nil
}

func (s *Subscription) RequestedMaxFrequency() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requestedMaxFrequency
}

// SetRequestedMaxFrequency may be called while active. It only records the
// value; Client.ChangeSubscriptionFrequency is what sends a control "change"
// request to the server (spec §4.2).
func (s *Subscription) SetRequestedMaxFrequency(freq float64) error {
	if freq < 0 {
		return lserrors.NewIllegalArgument("requestedMaxFrequency", "must be >= 0, got %f", freq)
	}
	s.mu.Lock()
	s.requestedMaxFrequency = freq
	s.mu.Unlock()
	return nil
}

func (s *Subscription) RequestedSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Subscription) SetRequestedSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return lserrors.NewIllegalState("cannot change requestedSnapshot while subscription is active")
	}
	s.snapshot = snap
	return nil
}

func (s *Subscription) Selector() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selector
}

func (s *Subscription) SetSelector(sel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return lserrors.NewIllegalState("cannot change selector while subscription is active")
	}
	s.selector = sel
	return nil
}

// RequestedBufferSize returns the configured buffer size, 0 meaning
// unlimited.
func (s *Subscription) RequestedBufferSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requestedBufferSize
}

func (s *Subscription) SetRequestedBufferSize(n int) error {
	if n < 0 {
		return lserrors.NewIllegalArgument("requestedBufferSize", "must be >= 0, got %d", n)
	}
	s.mu.Lock()
	s.requestedBufferSize = n
	s.mu.Unlock()
	return nil
}

// AddListener registers a SubscriptionListener. Dispatch discipline (never
// called concurrently, never called re-entrantly with another listener
// callback in flight) is the responsibility of internal/dispatch; this
// method only maintains the slice.
func (s *Subscription) AddListener(l SubscriptionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.listeners {
		if existing == l {
			return
		}
	}
	s.listeners = append(s.listeners, l)
}

// RemoveListener removes l by pointer identity (the recommended basis per
// spec §4.6's open question; see DESIGN.md).
func (s *Subscription) RemoveListener(l SubscriptionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Subscription) snapshotListeners() []SubscriptionListener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SubscriptionListener(nil), s.listeners...)
}

func (s *Subscription) RealMaxFrequency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.realMaxFrequency == "" {
		return "unlimited"
	}
	return s.realMaxFrequency
}

func (s *Subscription) applyRealMaxFrequency(v string) {
	s.mu.Lock()
	s.realMaxFrequency = v
	s.mu.Unlock()
}

func (s *Subscription) markActive(subID int, itemPos, fieldPos map[string]int, keyPos, cmdPos int) {
	s.mu.Lock()
	s.subID = subID
	s.active = true
	s.itemPos = itemPos
	s.fieldPos = fieldPos
	s.keyPosition = keyPos
	s.commandPosition = cmdPos
	s.mu.Unlock()
}

func (s *Subscription) markInactive() {
	s.mu.Lock()
	s.active = false
	s.subID = 0
	s.values = nil
	s.commandValues = nil
	s.mu.Unlock()
}

// applyUpdateCache folds one item's freshly reconstructed field vector into
// the value cache, and into the COMMAND key table when this is a COMMAND
// subscription and the update carries a key. Called on the engine goroutine
// before the corresponding ItemUpdate is handed to the dispatch bus, so a
// listener calling GetValue/GetCommandValue from inside its callback always
// sees the state implied by the event it is handling.
func (s *Subscription) applyUpdateCache(itemPos int, fields map[int]wire.FieldValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[[2]int]wire.FieldValue, len(fields))
	}
	for pos, fv := range fields {
		s.values[[2]int{itemPos, pos}] = fv
	}
	if s.mode != ModeCommand || s.keyPosition <= 0 {
		return
	}
	keyVal, ok := fields[s.keyPosition]
	if !ok || keyVal.Null {
		return
	}
	s.applyCommandCacheLocked(itemPos, keyVal.Value, fields)
}

// applySecondLevelCache folds a two-level COMMAND child subscription's
// update into the parent's command value table, offset fields and all.
func (s *Subscription) applySecondLevelCache(itemPos int, key string, fields map[int]wire.FieldValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCommandCacheLocked(itemPos, key, fields)
}

func (s *Subscription) applyCommandCacheLocked(itemPos int, key string, fields map[int]wire.FieldValue) {
	if s.commandValues == nil {
		s.commandValues = make(map[int]map[string]map[int]wire.FieldValue)
	}
	byKey := s.commandValues[itemPos]
	if byKey == nil {
		byKey = make(map[string]map[int]wire.FieldValue)
		s.commandValues[itemPos] = byKey
	}
	byField := byKey[key]
	if byField == nil {
		byField = make(map[int]wire.FieldValue, len(fields))
		byKey[key] = byField
	}
	for pos, fv := range fields {
		byField[pos] = fv
	}
}

// GetValue returns the latest value received for the given item/field
// position pair, or nil if no value has been received yet or the field's
// current value is an explicit null (spec §3, §4.2).
func (s *Subscription) GetValue(itemPos, fieldPos int) *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fv, ok := s.values[[2]int{itemPos, fieldPos}]
	if !ok {
		return nil
	}
	return fv.Ptr()
}

// GetCommandValue returns the latest value received for the given
// item/key/field combination on a COMMAND subscription (first- or
// second-level field position), or nil if the key was never added, was
// deleted, or the field has not been received yet.
func (s *Subscription) GetCommandValue(itemPos int, key string, fieldPos int) *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byKey, ok := s.commandValues[itemPos]
	if !ok {
		return nil
	}
	byField, ok := byKey[key]
	if !ok {
		return nil
	}
	fv, ok := byField[fieldPos]
	if !ok {
		return nil
	}
	return fv.Ptr()
}

func (s *Subscription) id() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subID
}

// fieldName resolves a 1-based position to its configured field name, used
// when building ItemUpdate values by name.
func (s *Subscription) fieldName(pos int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos < 1 || pos > len(s.fields) {
		return ""
	}
	return s.fields[pos-1]
}

func (s *Subscription) itemName(pos int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos < 1 || pos > len(s.items) {
		return ""
	}
	return s.items[pos-1]
}

