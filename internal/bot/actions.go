package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/raine/telegram-prompt-bot/internal/llm"
	"github.com/rs/zerolog/log"
)

// ActionResult is posted back to the session worker when a remote call
// settles.
type ActionResult struct {
	Ticket ActionTicket
	Label  string // What the user asked for, shown in captions

	Text     string
	Edit     *llm.EditResult
	Raw      json.RawMessage
	Prompt   string // Inspection prompt
	Streamed bool

	Err error
}

// runAction marks action busy and runs call off the worker. The result is
// delivered as an action_complete message so every state change still happens
// on the worker, in arrival order.
func (b *Bot) runAction(session *UserSession, action Action, progress, chatAction string, call func(ctx context.Context) *ActionResult) {
	ticket, ok := session.view.Begin(action, uuid.NewString())
	if !ok {
		session.reply(MsgActionInProgress)
		return
	}
	session.reply(progress)

	go func() {
		// Start typing indicator after the reply message (replies clear typing status)
		typingCtx, cancelTyping := context.WithCancel(session.ctx)
		go session.startTypingLoop(typingCtx, chatAction)

		start := time.Now()
		result := call(session.ctx)
		cancelTyping()

		result.Ticket = ticket
		log.Info().
			Int64("userId", session.userId).
			Str("action", string(action)).
			Str("actionId", ticket.ID).
			Dur("duration", time.Since(start)).
			Bool("ok", result.Err == nil).
			Msg("action finished")

		session.Send(SessionMessage{
			Type:   "action_complete",
			Ctx:    context.Background(),
			Result: result,
		})
	}()
}

func (b *Bot) startAnalyze(session *UserSession) {
	img := session.view.Image
	if img == nil {
		session.reply(MsgSendImageFirst)
		return
	}
	// Asking again for the same image means the user wants a new description
	fresh := session.view.Prompt != ""
	b.runAction(session, ActionAnalyze, MsgAnalyzing, tgbotapi.ChatTyping, func(ctx context.Context) *ActionResult {
		if fresh {
			ctx = llm.WithFreshAnalysis(ctx)
		}
		text, err := b.service.Analyze(ctx, img)
		return &ActionResult{Text: text, Err: err}
	})
}

func (b *Bot) startImprove(session *UserSession) {
	prompt := strings.TrimSpace(session.view.Prompt)
	if prompt == "" {
		session.reply(MsgNoPrompt)
		return
	}
	b.runAction(session, ActionImprove, MsgImproving, tgbotapi.ChatTyping, func(ctx context.Context) *ActionResult {
		text, err := b.service.Improve(ctx, prompt)
		return &ActionResult{Text: text, Err: err}
	})
}

// startEdit edits the current image. The source image is kept; the result is
// offered separately.
func (b *Bot) startEdit(session *UserSession, instruction, label string) {
	img := session.view.Image
	if img == nil {
		session.reply(MsgSendImageFirst)
		return
	}
	if strings.TrimSpace(instruction) == "" {
		session.reply(MsgNoInstruction)
		return
	}
	b.runAction(session, ActionEdit, MsgEditing, tgbotapi.ChatUploadPhoto, func(ctx context.Context) *ActionResult {
		edit, err := b.service.Edit(ctx, img, instruction)
		return &ActionResult{Edit: edit, Label: label, Err: err}
	})
}

// startInspect sends prompt as a raw request, or through the streaming
// endpoint together with the current image when stream is set.
func (b *Bot) startInspect(session *UserSession, prompt string, stream bool) {
	session.view.LastInspect = prompt
	img := session.view.Image
	b.runAction(session, ActionInspect, MsgInspecting, tgbotapi.ChatTyping, func(ctx context.Context) *ActionResult {
		if stream {
			text, err := b.service.StreamText(ctx, prompt, img)
			return &ActionResult{Text: text, Prompt: prompt, Streamed: true, Err: err}
		}
		raw, err := b.service.RawRequest(ctx, prompt)
		return &ActionResult{Raw: raw, Prompt: prompt, Err: err}
	})
}

// handleActionComplete applies a settled action to the view state.
// Called from session worker - no locking needed.
func (b *Bot) handleActionComplete(session *UserSession, result *ActionResult) {
	if result == nil {
		return
	}
	if !session.view.Finish(result.Ticket) {
		log.Info().
			Str("action", string(result.Ticket.Action)).
			Str("actionId", result.Ticket.ID).
			Msg("session changed during action, discarding result")
		return
	}

	if result.Err != nil {
		session.view.Fail(result.Err)
		session.replyWithFailure(result.Err)
		return
	}

	switch result.Ticket.Action {
	case ActionAnalyze:
		session.view.Prompt = result.Text
		session.replyPlain(MsgPromptResult+"\n\n"+result.Text, promptKeyboard())
	case ActionImprove:
		session.view.Prompt = result.Text
		session.replyPlain(MsgImprovedResult+"\n\n"+result.Text, promptKeyboard())
	case ActionEdit:
		session.view.EditedImage = result.Edit
		b.sendEditedImage(session, result)
	case ActionInspect:
		if result.Streamed {
			session.replyPlain(fmt.Sprintf(MsgStreamResult, result.Text), nil)
			return
		}
		b.sendInspection(session, result)
	}
}

func (b *Bot) sendEditedImage(session *UserSession, result *ActionResult) {
	edit := result.Edit
	photo := tgbotapi.NewPhoto(session.userId, tgbotapi.FileBytes{
		Name:  "edit" + extensionFor(edit.MIMEType),
		Bytes: edit.Image,
	})
	caption := fmt.Sprintf(MsgEditCaption, result.Label)
	if edit.Text != "" {
		caption = fmt.Sprintf(MsgEditCaptionText, result.Label, edit.Text)
	}
	photo.Caption = truncate(caption, telegramMaxCaption)
	photo.ReplyMarkup = editResultKeyboard()
	session.sendChattable(photo)
}

// sendEditedDocument sends the last edit uncompressed.
func (b *Bot) sendEditedDocument(session *UserSession) {
	edit := session.view.EditedImage
	if edit == nil {
		session.reply(MsgNoEditedImage)
		return
	}
	doc := tgbotapi.NewDocument(session.userId, tgbotapi.FileBytes{
		Name:  "imagen-editada" + extensionFor(edit.MIMEType),
		Bytes: edit.Image,
	})
	session.sendChattable(doc)
}

// sendInspection shows the equivalent curl command and the full response.
func (b *Bot) sendInspection(session *UserSession, result *ActionResult) {
	curl := llm.CurlExample(b.baseURL, b.textModel, result.Prompt)
	body := llm.PrettyJSON(result.Raw)

	curlMsg := tgbotapi.NewMessage(session.userId,
		html.EscapeString(MsgInspectCurlHeader)+"\n<pre>"+html.EscapeString(truncate(curl, telegramMaxText-200))+"</pre>")
	curlMsg.ParseMode = tgbotapi.ModeHTML
	session.replyWithMessage(curlMsg)

	respMsg := tgbotapi.NewMessage(session.userId,
		html.EscapeString(MsgInspectResponse)+"\n<pre>"+html.EscapeString(truncate(body, telegramMaxText-200))+"</pre>")
	respMsg.ParseMode = tgbotapi.ModeHTML
	respMsg.ReplyMarkup = inspectKeyboard()
	session.replyWithMessage(respMsg)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
