package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWSStreaming_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err == nil {
			received <- string(msg)
		}
		conn.WriteMessage(websocket.TextMessage, []byte("CONOK,sid,50000,5000,*"))
		conn.WriteMessage(websocket.TextMessage, []byte("PROBE"))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	tr := NewWSStreaming(websocket.DefaultDialer, zerolog.Nop())
	err := tr.Open(context.Background(), wsURL, []byte("LS_op=create"), http.Header{})
	require.NoError(t, err)
	defer tr.Close()

	select {
	case got := <-received:
		require.Equal(t, "LS_op=create", got)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received initial frame")
	}

	first := <-tr.Lines()
	require.NoError(t, first.Err)
	require.Equal(t, "CONOK,sid,50000,5000,*", first.Text)

	second := <-tr.Lines()
	require.NoError(t, second.Err)
	require.Equal(t, "PROBE", second.Text)
}

func TestWSStreaming_SendBeforeOpenFails(t *testing.T) {
	tr := NewWSStreaming(websocket.DefaultDialer, zerolog.Nop())
	require.Error(t, tr.Send(context.Background(), []byte("x")))
}
