package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestHTTPPolling_RepollsAndPicksUpSendBody(t *testing.T) {
	var requests int32
	var lastBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(string(body))
		n := atomic.AddInt32(&requests, 1)
		io.WriteString(w, "NOOP-"+strconv.Itoa(int(n))+"\r\n")
	}))
	defer srv.Close()

	tr := NewHTTPPolling(srv.Client(), 20*time.Millisecond, zerolog.Nop())
	err := tr.Open(context.Background(), srv.URL, []byte("LS_op=poll"), http.Header{})
	require.NoError(t, err)
	defer tr.Close()

	first := <-tr.Lines()
	require.NoError(t, first.Err)
	require.Equal(t, "NOOP-1", first.Text)

	require.NoError(t, tr.Send(context.Background(), []byte("LS_op=poll2")))

	second := <-tr.Lines()
	require.NoError(t, second.Err)
	require.Equal(t, "NOOP-2", second.Text)
	require.Equal(t, "LS_op=poll2", lastBody.Load())
}

func TestHTTPPolling_StopsOnClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "NOOP\r\n")
	}))
	defer srv.Close()

	tr := NewHTTPPolling(srv.Client(), 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, tr.Open(context.Background(), srv.URL, nil, http.Header{}))
	<-tr.Lines()
	require.NoError(t, tr.Close())
}
