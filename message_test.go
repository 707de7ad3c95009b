package tlcpclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageOutcome_String(t *testing.T) {
	require.Equal(t, "processed", MessageProcessed.String())
	require.Equal(t, "denied", MessageDenied.String())
	require.Equal(t, "discarded", MessageDiscarded.String())
	require.Equal(t, "timed-out", MessageTimedOut.String())
	require.Equal(t, "aborted", MessageAborted.String())
	require.Equal(t, "unknown", MessageOutcome(99).String())
}
