package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-prompt-bot/internal/bot"
	"github.com/raine/telegram-prompt-bot/internal/config"
	"github.com/raine/telegram-prompt-bot/internal/httpapi"
	"github.com/raine/telegram-prompt-bot/internal/llm"
	"github.com/raine/telegram-prompt-bot/internal/magic"
	"github.com/raine/telegram-prompt-bot/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = "telegram-prompt-bot.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing .env file
	config.LoadEnvFile()

	// Check if required config is missing
	if missing := config.CheckRequired(); len(missing) > 0 {
		if config.IsInteractiveTerminal() {
			if !config.RunSetupWizard() {
				config.WaitOnWindows()
				os.Exit(1)
			}
		} else {
			// Non-interactive (systemd, k8s, etc.) - fail with clear error
			config.FatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			config.FatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		config.FatalWithWait("%v", err)
	}

	catalog, err := magic.Load(cfg.MagicEditsFile)
	if err != nil {
		config.FatalWithWait("failed to load magic edits: %v", err)
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := cfg.GeminiOptions()
	if err != nil {
		config.FatalWithWait("%v", err)
	}
	gemini, err := llm.NewGeminiService(ctx, opts)
	if err != nil {
		config.FatalWithWait("failed to initialize gemini service: %v", err)
	}
	log.Info().Str("textModel", gemini.TextModel()).Str("language", gemini.Prompts().LanguageName()).Msg("gemini service initialized")

	// Analysis results are cached for the lifetime of the process
	cache, err := storage.NewMemoryStore()
	if err != nil {
		config.FatalWithWait("failed to initialize prompt cache: %v", err)
	}
	defer cache.Close()
	service := llm.NewCachedAnalyzer(gemini, cache, gemini.TextModel(), gemini.Prompts().Analysis())

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		config.FatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// Register bot commands for Telegram's command menu
	bot.RegisterCommands(tg)

	b := bot.NewBot(tg, service, bot.Options{
		AdminID:    cfg.AdminID,
		AllowedIDs: cfg.AllowedIDs,
		Catalog:    catalog,
		BaseURL:    cfg.GeminiBaseURL,
		TextModel:  gemini.TextModel(),
	})
	defer b.Shutdown()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runBot(ctx, tg, b)
	})

	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			return runHTTP(ctx, cfg.HTTPAddr, &httpapi.App{Service: service, Catalog: catalog})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

func runHTTP(ctx context.Context, addr string, app *httpapi.App) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}
