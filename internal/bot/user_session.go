package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// SessionMessage represents a message to be processed by the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Message data (only one is set based on Type)
	Message       *tgbotapi.Message
	CallbackQuery *tgbotapi.CallbackQuery
	Text          string
	Result        *ActionResult // For action_complete messages
}

// MessageSender abstracts the ability to send Telegram messages.
// This interface decouples UserSession from the full Bot struct,
// improving testability.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageHandler is the interface for processing session messages.
// This allows the session to dispatch to external handlers without circular dependencies.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// UserSession represents one chat with the bot.
//
// Threading model:
//   - Each session has a dedicated worker goroutine that processes messages sequentially
//   - Message handlers are called only from the worker and access view state without locks
//   - Remote calls run in their own goroutines and report back through the inbox
type UserSession struct {
	userId int64
	sender MessageSender

	// Worker channel for sequential message processing
	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler // Set after construction to avoid circular deps

	view *ViewState
}

func (s *UserSession) reset() {
	log.Info().Int64("userId", s.userId).Msg("reset user session")
	s.view.Reset()
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Send()
	return s._reply(formatReplyText(MsgUnexpectedErr, escapeMarkdown(err.Error())))
}

// replyWithFailure shows a normalized action failure verbatim.
func (s *UserSession) replyWithFailure(err error) tgbotapi.Message {
	return s.replyPlain("⚠️ "+err.Error(), nil)
}

// sendTypingAction sends a "typing" chat action to show the user that the bot is processing.
// The typing indicator automatically expires after ~5 seconds in Telegram.
func (s *UserSession) sendTypingAction(action string) {
	// Use Request instead of Send because sendChatAction returns a boolean, not a Message
	_, err := s.sender.Request(tgbotapi.NewChatAction(s.userId, action))
	if err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send typing action")
	}
}

// startTypingLoop sends a chat action every 4 seconds until the context is cancelled.
// This keeps the indicator visible during long-running operations like image edits.
// Run this in a goroutine and cancel the context when done.
func (s *UserSession) startTypingLoop(ctx context.Context, action string) {
	s.sendTypingAction(action)

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction(action)
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Str("text", msg.Text).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Info().Int64("userId", s.userId).Int("messageId", sent.MessageID).Msg("sent message")
	}

	return sent
}

func (s *UserSession) _reply(text string) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{
		Text:      text,
		ParseMode: tgbotapi.ModeMarkdown,
	}
	return s.replyWithMessage(msg)
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s._reply(formatReplyText(text, a...))
}

// replyPlain sends text without markdown parsing. Used for model output and
// error messages, which may contain characters markdown would reject.
func (s *UserSession) replyPlain(text string, markup any) tgbotapi.Message {
	msg := tgbotapi.NewMessage(s.userId, truncate(text, telegramMaxText))
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return s.replyWithMessage(msg)
}

// sendChattable sends photos and documents.
func (s *UserSession) sendChattable(c tgbotapi.Chattable) {
	if _, err := s.sender.Send(c); err != nil {
		log.Error().Err(err).Int64("userId", s.userId).Msg("failed to send attachment")
	}
}

// --- Worker methods ---

// StartWorker starts the session's message processing worker goroutine.
// Must be called after setting the handler.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

// SetHandler sets the message handler for this session.
func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

// runWorker is the main worker loop that processes messages sequentially.
func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

// processMessage handles a single message from the inbox.
func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		// Recover from any panics to keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	s.handler.HandleSessionMessage(msg.Ctx, s, msg)
}

// Send queues a message for processing by the worker.
// This is non-blocking - it returns immediately after queuing.
func (s *UserSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
// Returns when the message has been fully processed by the worker.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
}
