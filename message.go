package tlcpclient

// MessageOutcome classifies how an outbound message submitted via
// Client.SendMessage was ultimately resolved (spec §4.7).
type MessageOutcome int

const (
	// MessageProcessed means the server accepted and processed the message.
	MessageProcessed MessageOutcome = iota
	// MessageDenied means the server's Metadata Adapter rejected the message.
	MessageDenied
	// MessageDiscarded means the server dropped the message unprocessed
	// (a MSGFAIL with code 0).
	MessageDiscarded
	// MessageTimedOut means no outcome arrived within the configured
	// max-wait window.
	MessageTimedOut
	// MessageAborted means the outcome will never arrive because the
	// client disconnected or was stopped before the server responded.
	MessageAborted
)

func (o MessageOutcome) String() string {
	switch o {
	case MessageProcessed:
		return "processed"
	case MessageDenied:
		return "denied"
	case MessageDiscarded:
		return "discarded"
	case MessageTimedOut:
		return "timed-out"
	case MessageAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
