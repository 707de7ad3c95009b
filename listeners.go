package tlcpclient

// ClientListener receives session-wide notifications (spec §4.6). All
// methods are invoked from the single dispatcher goroutine, never
// concurrently and never re-entrantly with another listener's callback, so
// implementations do not need their own synchronization to stay consistent
// with the rest of this package's callbacks.
type ClientListener interface {
	// OnStatusChange is called whenever the client's Status changes.
	OnStatusChange(status Status)
	// OnPropertyChange is called after a ConnectionDetails or
	// ConnectionOptions setter commits a change, naming the property.
	OnPropertyChange(property string)
	// OnServerError is called when the server refuses the session
	// outright (CONERR) or ends it exceptionally (a non-zero-cause END).
	OnServerError(code int, message string)
	// OnListenStart / OnListenEnd bracket every batch of listener
	// invocations the dispatcher delivers to this listener.
	OnListenStart()
	OnListenEnd()
}

// SubscriptionListener receives per-subscription notifications (spec §4.2,
// §4.6). Like ClientListener, every method is invoked only from the
// dispatcher goroutine.
type SubscriptionListener interface {
	OnSubscription()
	OnUnsubscription()
	OnSubscriptionError(code int, message string)
	OnItemUpdate(update *ItemUpdate)
	OnEndOfSnapshot(itemName string, itemPos int)
	OnClearSnapshot(itemName string, itemPos int)
	OnItemLostUpdates(itemName string, itemPos int, lostUpdates int)
	OnCommandSecondLevelSubscriptionError(code int, message string, key string)
	OnCommandSecondLevelItemLostUpdates(lostUpdates int, key string)
	OnRealMaxFrequency(frequency string)
	OnListenStart()
	OnListenEnd()
}

// ClientMessageListener receives the outcome of one SendMessage call (spec
// §4.7).
type ClientMessageListener interface {
	OnProcessed(message string, response string)
	OnDeny(message string, code int, reason string)
	OnDiscarded(message string)
	OnAbort(message string, sentOnNetwork bool)
	OnTimeout(message string)
}

// BaseClientListener and BaseSubscriptionListener provide no-op
// implementations of every method, so callers can embed one and override
// only the callbacks they care about, matching the teacher's handler-struct
// convention in agents/docker-agent.
type BaseClientListener struct{}

func (BaseClientListener) OnStatusChange(Status)      {}
func (BaseClientListener) OnPropertyChange(string)    {}
func (BaseClientListener) OnServerError(int, string)  {}
func (BaseClientListener) OnListenStart()             {}
func (BaseClientListener) OnListenEnd()               {}

type BaseSubscriptionListener struct{}

func (BaseSubscriptionListener) OnSubscription()                                         {}
func (BaseSubscriptionListener) OnUnsubscription()                                       {}
func (BaseSubscriptionListener) OnSubscriptionError(int, string)                         {}
func (BaseSubscriptionListener) OnItemUpdate(*ItemUpdate)                                {}
func (BaseSubscriptionListener) OnEndOfSnapshot(string, int)                             {}
func (BaseSubscriptionListener) OnClearSnapshot(string, int)                             {}
func (BaseSubscriptionListener) OnItemLostUpdates(string, int, int)                      {}
func (BaseSubscriptionListener) OnCommandSecondLevelSubscriptionError(int, string, string) {}
func (BaseSubscriptionListener) OnCommandSecondLevelItemLostUpdates(int, string)          {}
func (BaseSubscriptionListener) OnRealMaxFrequency(string)                               {}
func (BaseSubscriptionListener) OnListenStart()                                          {}
func (BaseSubscriptionListener) OnListenEnd()                                            {}
