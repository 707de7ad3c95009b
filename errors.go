package tlcpclient

import "github.com/streamspace-dev/tlcp-client/internal/lserrors"

// IllegalArgumentError and IllegalStateError are aliased from
// internal/lserrors so callers can type-assert or errors.As against them
// without importing an internal package. Every validated setter and
// constructor in this package returns one of the two.
type (
	IllegalArgumentError = lserrors.IllegalArgumentError
	IllegalStateError    = lserrors.IllegalStateError
)

// IsSessionRefusal reports whether a server error code delivered through
// ClientListener.OnServerError is a refusal the client will not retry on
// its own (spec §7): the caller sees DISCONNECTED with no further automatic
// reconnection attempt.
func IsSessionRefusal(code int) bool { return lserrors.IsSessionRefusal(code) }

// IsSubscriptionError reports whether a server error code delivered through
// SubscriptionListener.OnSubscriptionError reverts that Subscription to
// inactive rather than tearing down the whole session.
func IsSubscriptionError(code int) bool { return lserrors.IsSubscriptionError(code) }
