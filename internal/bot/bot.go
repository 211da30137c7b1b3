package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/raine/telegram-prompt-bot/internal/llm"
	"github.com/raine/telegram-prompt-bot/internal/magic"
	"github.com/rs/zerolog/log"
)

// Version and BuildTime are set at build time with -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Options configures a Bot.
type Options struct {
	AdminID    int64
	AllowedIDs []int64
	Catalog    *magic.Catalog
	// Used to render the equivalent curl command of an inspection request
	BaseURL   string
	TextModel string
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg         BotAPI
	state      *BotState
	service    llm.Client
	catalog    *magic.Catalog
	downloader *ImageDownloader
	adminID    int64
	allowed    map[int64]bool
	baseURL    string
	textModel  string
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, service llm.Client, opts Options) *Bot {
	bot := &Bot{
		tg:         tg,
		service:    service,
		catalog:    opts.Catalog,
		downloader: NewImageDownloader(),
		adminID:    opts.AdminID,
		allowed:    make(map[int64]bool),
		baseURL:    opts.BaseURL,
		textModel:  opts.TextModel,
	}
	if bot.catalog == nil {
		bot.catalog = magic.Default()
	}
	if bot.textModel == "" {
		bot.textModel = llm.DefaultTextModel
	}
	for _, id := range opts.AllowedIDs {
		bot.allowed[id] = true
	}

	bot.state = bot.NewBotState()
	return bot
}

// Shutdown stops every session worker.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

func (b *Bot) isAllowed(userId int64) bool {
	return userId == b.adminID || b.allowed[userId]
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// Must be before getUserSession to prevent memory exhaustion from random user IDs
	if !b.isAllowed(userId) {
		return // Silent drop
	}

	session := b.state.getUserSession(userId)

	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	message := update.Message
	log.Info().Int64("userId", userId).Str("text", message.Text).Str("caption", message.Caption).Msg("got message")

	switch {
	case len(message.Photo) > 0:
		send(SessionMessage{Type: "photo", Ctx: ctx, Message: message})
	case message.Document != nil:
		send(SessionMessage{Type: "document", Ctx: ctx, Message: message})
	default:
		send(SessionMessage{Type: "text", Ctx: ctx, Message: message})
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "photo":
		b.handlePhotoMessage(ctx, session, msg.Message)
	case "document":
		b.handleDocumentMessage(ctx, session, msg.Message)
	case "text":
		b.handleTextMessage(ctx, session, msg.Message)
	case "action_complete":
		b.handleActionComplete(session, msg.Result)
	}
}

// handlePhotoMessage accepts the largest size of a compressed photo.
// Telegram always re-encodes these as JPEG.
func (b *Bot) handlePhotoMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	photo := message.Photo[0]
	for _, p := range message.Photo[1:] {
		if p.Width*p.Height > photo.Width*photo.Height {
			photo = p
		}
	}
	b.acceptImage(ctx, session, photo.FileID, int64(photo.FileSize), "image/jpeg", "photo.jpg")
	b.applyCaption(session, message.Caption)
}

// handleDocumentMessage accepts an image sent as a file, which keeps the
// original format and quality.
func (b *Bot) handleDocumentMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	doc := message.Document
	if doc.MimeType != "" && !strings.HasPrefix(strings.ToLower(doc.MimeType), "image/") {
		session.view.SelectImage(nil, imagefile.ErrUnsupportedFormat)
		session.reply(MsgNotAnImage)
		return
	}
	b.acceptImage(ctx, session, doc.FileID, int64(doc.FileSize), doc.MimeType, doc.FileName)
	b.applyCaption(session, message.Caption)
}

// acceptImage validates the declared size and type, downloads the file and
// makes it the current image. Any failure clears the previous image.
func (b *Bot) acceptImage(ctx context.Context, session *UserSession, fileID string, size int64, mimeType, name string) {
	var err error
	if mimeType == "" {
		// Type is unknown until the content is sniffed; only the size can be checked
		if size > imagefile.MaxImageSize {
			err = imagefile.ErrTooLarge
		}
	} else {
		err = imagefile.Validate(size, mimeType)
	}
	if err != nil {
		session.view.SelectImage(nil, err)
		session.replyPlain(session.view.LastError, nil)
		return
	}

	data, contentType, err := b.downloader.DownloadFromTelegramFileID(ctx, b.tg.GetFileDirectURL, fileID)
	if err != nil {
		if errors.Is(err, imagefile.ErrTooLarge) {
			session.view.SelectImage(nil, err)
			session.replyPlain(session.view.LastError, nil)
			return
		}
		log.Error().Err(err).Str("fileID", fileID).Msg("failed to download image")
		session.reply(MsgDownloadFailed)
		return
	}
	if mimeType == "" {
		mimeType = imagefile.DeclaredOrDetected(contentType, data)
	}

	img, err := imagefile.New(data, mimeType, name)
	session.view.SelectImage(img, err)
	if err != nil {
		session.replyPlain(session.view.LastError, nil)
		return
	}

	log.Info().Int64("userId", session.userId).Str("mimeType", img.MIMEType).Int64("size", img.Size).Msg("image selected")
	msg := tgbotapi.NewMessage(session.userId, formatReplyText(MsgImageReceived, img.MIMEType, formatBytes(img.Size)))
	msg.ReplyMarkup = imageKeyboard()
	session.replyWithMessage(msg)
}

// applyCaption treats a caption on an image as its edit instruction.
func (b *Bot) applyCaption(session *UserSession, caption string) {
	caption = strings.TrimSpace(caption)
	if caption == "" || session.view.Image == nil {
		return
	}
	session.view.Instruction = caption
}

// handleTextMessage processes text messages. Anything that is not a command
// becomes the pending edit instruction.
func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, session, text)
		return
	}
	b.setInstruction(session, text)
}

func (b *Bot) setInstruction(session *UserSession, instruction string) {
	session.view.Instruction = instruction
	session.replyPlain(formatReplyText(MsgInstructionSaved, instruction), instructionKeyboard())
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, text string) {
	command, _ := parseCommand(text)
	args := commandArgs(text)

	switch command {
	case "/start", "/ayuda":
		session.reply(MsgStart)
	case "/analizar":
		b.startAnalyze(session)
	case "/mejorar":
		if args != "" {
			session.view.Prompt = args
		}
		b.startImprove(session)
	case "/editar":
		if args != "" {
			session.view.Instruction = args
		}
		b.startEdit(session, session.view.Instruction, session.view.Instruction)
	case "/instruccion":
		if args == "" {
			session.reply(MsgInstructionUsage)
			return
		}
		b.setInstruction(session, args)
	case "/magia":
		b.showMagicEdits(session)
	case "/pose":
		b.showPoses(session)
	case "/inspeccionar":
		if args == "" {
			session.reply(MsgInspectUsage)
			return
		}
		b.startInspect(session, args, false)
	case "/reiniciar":
		session.reset()
		session.reply(MsgReset)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		session.reply(MsgUnknownCommand)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
// Called from session worker - no locking needed.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.tg.Request(callback); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback query")
	}

	prefix, value, _ := strings.Cut(query.Data, ":")
	switch prefix {
	case "act":
		b.handleActionCallback(session, value)
	case "magic":
		b.handleMagicCallback(session, value)
	case "pose":
		b.handlePoseCallback(session, value)
	default:
		log.Warn().Str("data", query.Data).Msg("unknown callback data")
	}
}

func (b *Bot) handleActionCallback(session *UserSession, action string) {
	switch action {
	case "analyze":
		b.startAnalyze(session)
	case "edit":
		b.startEdit(session, session.view.Instruction, session.view.Instruction)
	case "improve":
		b.startImprove(session)
	case "magic":
		b.showMagicEdits(session)
	case "pose":
		b.showPoses(session)
	case "use_edited":
		if !session.view.UseEditedImage() {
			session.reply(MsgNoEditedImage)
			return
		}
		msg := tgbotapi.NewMessage(session.userId, MsgEditedImageSaved)
		msg.ReplyMarkup = imageKeyboard()
		session.replyWithMessage(msg)
	case "download":
		b.sendEditedDocument(session)
	case "stream":
		if session.view.LastInspect == "" {
			session.reply(MsgNoInspectPrompt)
			return
		}
		b.startInspect(session, session.view.LastInspect, true)
	}
}

func (b *Bot) handleMagicCallback(session *UserSession, id string) {
	edit, ok := b.catalog.Edit(id)
	if !ok {
		session.reply(MsgUnknownMagicEdit)
		return
	}
	b.startEdit(session, edit.Prompt, edit.Name)
}

func (b *Bot) handlePoseCallback(session *UserSession, id string) {
	pose, ok := b.catalog.Pose(id)
	if !ok {
		session.reply(MsgUnknownPose)
		return
	}
	b.setInstruction(session, b.catalog.ApplyPose(session.view.Instruction, pose))
}

func (b *Bot) showMagicEdits(session *UserSession) {
	if len(b.catalog.Edits) == 0 {
		session.reply(MsgNoMagicEdits)
		return
	}
	msg := tgbotapi.NewMessage(session.userId, MsgChooseMagicEdit)
	msg.ReplyMarkup = magicKeyboard(b.catalog.Edits)
	session.replyWithMessage(msg)
}

func (b *Bot) showPoses(session *UserSession) {
	msg := tgbotapi.NewMessage(session.userId, MsgChoosePose)
	msg.ReplyMarkup = poseKeyboard(b.catalog.Poses)
	session.replyWithMessage(msg)
}
