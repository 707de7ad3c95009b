package session

import "github.com/streamspace-dev/tlcp-client/internal/wire"

// SessionInfo carries the server-assigned fields delivered in a CONOK frame.
type SessionInfo struct {
	SessionID         string
	ClientIP          string
	ServerInstance    string
	ServerSocketName  string
	RequestLimit      int
	KeepaliveMillis   int
}

// Callbacks is how the engine reports every externally visible effect. The
// root package's Client implements it and is the only consumer; the engine
// never reaches upward into root-package types, keeping internal/session
// free to be tested without the public API in scope.
//
// Every method is called from the engine goroutine. Implementations must
// not block: Client hands work to the dispatch bus and returns immediately.
type Callbacks interface {
	OnStatusChange(status Status)
	OnSessionBound(info SessionInfo)
	OnSessionEnded(code int, message string, willRetry bool)
	OnServerError(code int, message string)

	OnSubscriptionAck(subID, nItems, nFields int)
	OnSubscriptionCommandAck(subID, nItems, nFields, keyPos, cmdPos int)
	OnUnsubscribed(subID int)
	OnSubscriptionError(subID, code int, message string)
	OnRealMaxFrequency(subID int, frequency string)

	OnItemUpdate(subID, itemPos int, fields map[int]wire.FieldValue, changed map[int]bool, isSnapshot bool)
	OnEndOfSnapshot(subID, itemPos int)
	OnClearSnapshot(subID, itemPos int)
	OnLostUpdates(subID, itemPos, count int)
	OnCommandKeyAdded(subID, itemPos int, key string)
	OnCommandKeyRemoved(subID, itemPos int, key string)
	OnCommandSecondLevelError(subID, itemPos int, key string, code int, message string)

	OnRealMaxBandwidth(bandwidth string)
	OnMessageOutcome(sequence string, number int, outcome MessageOutcome, detail string)
}

// MessageOutcome mirrors the root package's enum without importing it.
type MessageOutcome int

const (
	MessageProcessed MessageOutcome = iota
	MessageDenied
	MessageDiscarded
	MessageTimedOut
	MessageAborted
)
