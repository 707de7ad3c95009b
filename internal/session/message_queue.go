package session

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/streamspace-dev/tlcp-client/internal/wire"
)

// messageQueue assigns the per-sequence progressive numbers spec §4.7
// requires (each named sequence is a strictly increasing counter the engine
// owns) and tracks which (sequence, number) pairs are still awaiting an
// outcome, so a duplicate or out-of-order MSGDONE/MSGFAIL can be ignored
// rather than double-reported to the caller.
type messageQueue struct {
	mu       sync.Mutex
	counters map[string]int
	pending  map[string]bool
}

func newMessageQueue() *messageQueue {
	return &messageQueue{
		counters: make(map[string]int),
		pending:  make(map[string]bool),
	}
}

func (q *messageQueue) next(sequence string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counters[sequence]++
	n := q.counters[sequence]
	q.pending[key(sequence, n)] = true
	return n
}

func (q *messageQueue) resolve(sequence string, number int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	k := key(sequence, number)
	if !q.pending[k] {
		return false
	}
	delete(q.pending, k)
	return true
}

func (q *messageQueue) abortAll(report func(sequence string, number int)) {
	q.mu.Lock()
	pending := q.pending
	q.pending = make(map[string]bool)
	q.mu.Unlock()
	for k := range pending {
		seq, n := splitKey(k)
		report(seq, n)
	}
}

func key(sequence string, number int) string {
	return sequence + "#" + strconv.Itoa(number)
}

func splitKey(k string) (string, int) {
	idx := strings.LastIndex(k, "#")
	if idx < 0 {
		return k, 0
	}
	n, _ := strconv.Atoi(k[idx+1:])
	return k[:idx], n
}

// doSendMessage runs on the engine goroutine and must return without
// blocking on network I/O: it only assigns the message its progressive
// number (so the result is available to the caller immediately) and hands
// the actual POST off to sendMessageAsync, which reports its outcome
// through the callbacks bridge like any other asynchronous arrival.
func (e *Engine) doSendMessage(ctx context.Context, msg outboundMsg) sendMessageResult {
	e.mu.RLock()
	cfg := e.cfg
	sessionID := e.sessionID
	e.mu.RUnlock()
	if sessionID == "" {
		return sendMessageResult{err: fmt.Errorf("session: cannot send message, no active session")}
	}

	number := e.messages.next(msg.sequence)
	reqID := e.nextRequestID()
	go e.sendMessageAsync(ctx, cfg, sessionID, msg, number, reqID)
	return sendMessageResult{number: number}
}

func (e *Engine) sendMessageAsync(ctx context.Context, cfg Config, sessionID string, msg outboundMsg, number, reqID int) {
	req := wire.MessageRequest{
		SessionID:  sessionID,
		ReqID:      reqID,
		Sequence:   msg.sequence,
		MessageNum: number,
		Text:       msg.text,
		MaxWaitMs:  int(msg.maxWait),
	}

	target := wire.BuildURL(cfg.ServerAddress, wire.EndpointMessage, false)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(req.Encode().Encode()))
	if err != nil {
		e.messages.resolve(msg.sequence, number)
		e.cb.OnMessageOutcome(msg.sequence, number, MessageAborted, err.Error())
		return
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		e.messages.resolve(msg.sequence, number)
		e.cb.OnMessageOutcome(msg.sequence, number, MessageAborted, err.Error())
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e.messages.resolve(msg.sequence, number)
		e.cb.OnMessageOutcome(msg.sequence, number, MessageAborted, fmt.Sprintf("status %d", resp.StatusCode))
	}
}

func (e *Engine) onMsgDone(frame wire.Frame) {
	if len(frame.Args) < 2 {
		return
	}
	sequence := frame.Args[0]
	number, err := strconv.Atoi(frame.Args[1])
	if err != nil {
		return
	}
	if !e.messages.resolve(sequence, number) {
		return
	}
	response := ""
	if len(frame.Args) > 2 {
		response = strings.Join(frame.Args[2:], ",")
	}
	e.cb.OnMessageOutcome(sequence, number, MessageProcessed, response)
}

func (e *Engine) onMsgFail(frame wire.Frame) {
	if len(frame.Args) < 2 {
		return
	}
	sequence := frame.Args[0]
	number, err := strconv.Atoi(frame.Args[1])
	if err != nil {
		return
	}
	if !e.messages.resolve(sequence, number) {
		return
	}
	code := 0
	message := ""
	if len(frame.Args) > 2 {
		code, _ = strconv.Atoi(frame.Args[2])
	}
	if len(frame.Args) > 3 {
		message = strings.Join(frame.Args[3:], ",")
	}
	outcome := MessageDenied
	if code == 0 {
		outcome = MessageDiscarded
	}
	e.cb.OnMessageOutcome(sequence, number, outcome, message)
}
