package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

var (
	TelegramAPIURL = "https://api.telegram.org"
	GeminiAPIURL   = "https://generativelanguage.googleapis.com"
)

var validationClient = resty.New().SetDebug(false).SetTimeout(10 * time.Second)

// IsInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// RunSetupWizard runs an interactive wizard to collect required configuration.
// Returns true if setup was successful and the bot should continue starting.
func RunSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("🎨 Telegram Prompt Bot - First-time Setup"))
	fmt.Println()

	var botToken, geminiKey, adminID, allowedIDs string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token").
				Description("Message @BotFather on Telegram → /newbot → copy token").
				Value(&botToken).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("token is required")
					}
					return ValidateTelegramToken(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Get yours at https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					return ValidateGeminiKey(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your Telegram User ID").
				Description("Message @userinfobot to get your ID: https://t.me/userinfobot").
				Value(&adminID).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("user ID is required")
					}
					if _, err := strconv.ParseInt(s, 10, 64); err != nil {
						return errors.New("must be a number")
					}
					return nil
				}),
			huh.NewInput().
				Title("Other allowed user IDs (optional)").
				Description("Comma separated").
				Value(&allowedIDs).
				Validate(func(s string) error {
					_, err := ParseIDList(s)
					return err
				}),
		),
	).WithTheme(huh.ThemeBase16())

	err := form.Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		"BOT_TOKEN":         botToken,
		"GEMINI_API_KEY":    geminiKey,
		"ADMIN_TELEGRAM_ID": adminID,
	}
	if allowedIDs != "" {
		values["ALLOWED_TELEGRAM_IDS"] = allowedIDs
	}

	configPath, err := FilePath()
	if err == nil {
		err = WriteEnvFile(configPath, values)
	}
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		WaitOnWindows()
		return false
	}

	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()
	fmt.Println("Starting bot...")
	fmt.Println()

	return true
}

// ValidateTelegramToken validates a Telegram bot token by calling the getMe API.
func ValidateTelegramToken(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}

	_, err := validationClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		SetPathParam("token", token).
		Get(TelegramAPIURL + "/bot{token}/getMe")
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("connection timed out - check your internet")
		}
		return errors.New("connection failed - check your internet")
	}

	if !result.OK {
		if result.Description != "" {
			return errors.New(result.Description)
		}
		return errors.New("token rejected by Telegram")
	}

	return nil
}

// ValidateGeminiKey validates a Gemini API key with the lightweight models
// list endpoint.
func ValidateGeminiKey(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	res, err := validationClient.R().
		SetContext(ctx).
		SetError(&apiErr).
		SetQueryParam("key", key).
		Get(GeminiAPIURL + "/v1beta/models")
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	switch code := res.StatusCode(); {
	case code == 400 || code == 401 || code == 403:
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", code)
	case code != 200:
		return fmt.Errorf("unexpected response (HTTP %d)", code)
	}

	return nil
}

// WriteEnvFile writes values to path in a stable order.
// Uses restrictive permissions (0600) since the file contains secrets.
func WriteEnvFile(path string, values map[string]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	order := []string{"BOT_TOKEN", "GEMINI_API_KEY", "ADMIN_TELEGRAM_ID", "ALLOWED_TELEGRAM_IDS"}
	for _, key := range order {
		if val, ok := values[key]; ok {
			if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
	}

	return nil
}

// WaitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func WaitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// FatalWithWait logs a fatal error and waits on Windows before exiting.
func FatalWithWait(format string, args ...any) {
	log.Error().Msgf(format, args...)
	WaitOnWindows()
	os.Exit(1)
}
