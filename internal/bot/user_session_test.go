package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

// recordingHandler records the Text of each message it processes. Messages
// with Text "PANIC" panic; "BLOCK" waits until release is closed.
type recordingHandler struct {
	mu      sync.Mutex
	seen    []string
	started chan struct{}
	release chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (h *recordingHandler) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	h.mu.Lock()
	h.seen = append(h.seen, msg.Text)
	h.mu.Unlock()

	switch msg.Text {
	case "PANIC":
		panic("handler exploded")
	case "BLOCK":
		close(h.started)
		<-h.release
	}
}

func (h *recordingHandler) log() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func newWorkerSession(id int64, handler MessageHandler) *UserSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &UserSession{
		userId:  id,
		inbox:   make(chan SessionMessage, 10),
		ctx:     ctx,
		cancel:  cancel,
		handler: handler,
		view:    NewViewState(),
	}
	s.StartWorker()
	return s
}

func within(t *testing.T, d time.Duration, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatalf("timed out: %s", what)
	}
}

func TestWorker_ProcessesInOrder(t *testing.T) {
	handler := newRecordingHandler()
	session := newWorkerSession(1, handler)
	defer session.Stop()

	for _, text := range []string{"photo", "analyze", "action_complete"} {
		session.Send(SessionMessage{Text: text})
	}
	session.SendSync(SessionMessage{Text: "barrier"})

	assert.Equal(t, []string{"photo", "analyze", "action_complete", "barrier"}, handler.log())
}

func TestWorker_SurvivesPanic(t *testing.T) {
	handler := newRecordingHandler()
	session := newWorkerSession(1, handler)
	defer session.Stop()

	session.SendSync(SessionMessage{Text: "PANIC"})
	session.SendSync(SessionMessage{Text: "after"})

	assert.Equal(t, []string{"PANIC", "after"}, handler.log())
}

func TestWorker_SessionsAreIndependent(t *testing.T) {
	slow := newRecordingHandler()
	slowSession := newWorkerSession(1, slow)
	defer slowSession.Stop()
	fast := newRecordingHandler()
	fastSession := newWorkerSession(2, fast)
	defer fastSession.Stop()

	go slowSession.SendSync(SessionMessage{Text: "BLOCK"})
	within(t, 100*time.Millisecond, slow.started, "slow session did not start")

	fastSession.SendSync(SessionMessage{Text: "hello"})
	assert.Equal(t, []string{"hello"}, fast.log())
	assert.Equal(t, []string{"BLOCK"}, slow.log())

	close(slow.release)
}

func TestWorker_SendSyncWaits(t *testing.T) {
	handler := newRecordingHandler()
	session := newWorkerSession(1, handler)
	defer session.Stop()

	returned := make(chan struct{})
	go func() {
		session.SendSync(SessionMessage{Text: "BLOCK"})
		close(returned)
	}()
	within(t, 100*time.Millisecond, handler.started, "handler did not start")

	select {
	case <-returned:
		t.Fatal("SendSync returned while the handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(handler.release)
	within(t, 100*time.Millisecond, returned, "SendSync did not return")
}

func TestWorker_StopReleasesQueuedCallers(t *testing.T) {
	handler := newRecordingHandler()
	session := newWorkerSession(1, handler)

	// Occupy the worker so the rest stay queued
	go session.SendSync(SessionMessage{Text: "BLOCK"})
	within(t, 100*time.Millisecond, handler.started, "handler did not start")

	var waiters []chan struct{}
	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		session.inbox <- SessionMessage{Text: "queued", Done: done}
		waiters = append(waiters, done)
	}

	stopped := make(chan struct{})
	go func() {
		session.Stop()
		close(stopped)
	}()
	close(handler.release)

	within(t, time.Second, stopped, "Stop deadlocked")
	for _, done := range waiters {
		within(t, 100*time.Millisecond, done, "queued caller was not released")
	}
}

func TestReplyWithFailure_SendsPlainText(t *testing.T) {
	tg := new(botApiMock)
	session := newWorkerSession(5, newRecordingHandler())
	session.sender = tg
	defer session.Stop()

	// Model output may contain markdown control characters
	tg.On("Send", tgbotapi.NewMessage(5, "⚠️ bad *request* _here_")).Return(tgbotapi.Message{MessageID: 3}, nil).Once()

	session.replyWithFailure(errors.New("bad *request* _here_"))
	tg.AssertExpectations(t)
}
