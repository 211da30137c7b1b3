package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/raine/telegram-prompt-bot/internal/llm"
)

const (
	AppName     = "telegram-prompt-bot"
	EnvFileName = "config.env"
)

// RequiredEnvVars lists the variables the bot cannot start without.
var RequiredEnvVars = []string{"BOT_TOKEN", "GEMINI_API_KEY", "ADMIN_TELEGRAM_ID"}

// Config holds the runtime configuration read from the environment.
type Config struct {
	BotToken          string
	GeminiAPIKey      string
	AdminID           int64
	AllowedIDs        []int64
	GeminiBaseURL     string
	TextModel         string
	ImageModel        string
	PromptLanguage    string
	PersonPlaceholder string
	MagicEditsFile    string
	HTTPAddr          string
}

// ConfigDir returns the application's config directory path.
// Creates the directory if it doesn't exist.
func ConfigDir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from ./.env and then from the
// config file in the user's config directory. A variable that is already set
// is never overridden, so the process environment beats ./.env, which beats
// the config file. Errors are ignored since the files may not exist.
func LoadEnvFile() {
	_ = godotenv.Load(".env")

	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
}

// GeminiAPIKey returns GEMINI_API_KEY, falling back to API_KEY.
func GeminiAPIKey() string {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("API_KEY"))
}

// CheckRequired returns the names of any missing required variables.
func CheckRequired() []string {
	var missing []string
	for _, v := range RequiredEnvVars {
		if v == "GEMINI_API_KEY" {
			if GeminiAPIKey() == "" {
				missing = append(missing, v)
			}
			continue
		}
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// LoadGemini reads only the generation API settings. Used by front ends that
// have no Telegram side, such as the CLI.
func LoadGemini() *Config {
	return &Config{
		GeminiAPIKey:      GeminiAPIKey(),
		GeminiBaseURL:     strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		TextModel:         strings.TrimSpace(os.Getenv("GEMINI_TEXT_MODEL")),
		ImageModel:        strings.TrimSpace(os.Getenv("GEMINI_IMAGE_MODEL")),
		PromptLanguage:    strings.TrimSpace(os.Getenv("PROMPT_LANGUAGE")),
		PersonPlaceholder: strings.TrimSpace(os.Getenv("PROMPT_PERSON_PLACEHOLDER")),
		MagicEditsFile:    strings.TrimSpace(os.Getenv("MAGIC_EDITS_FILE")),
	}
}

// Load reads the bot configuration from the environment. The Gemini key is
// not required here; operations report a missing key when they run.
func Load() (*Config, error) {
	cfg := LoadGemini()
	cfg.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}

	adminIDStr := strings.TrimSpace(os.Getenv("ADMIN_TELEGRAM_ID"))
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	adminID, err := strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be a valid integer: %w", err)
	}
	cfg.AdminID = adminID

	allowed, err := ParseIDList(os.Getenv("ALLOWED_TELEGRAM_IDS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_TELEGRAM_IDS: %w", err)
	}
	cfg.AllowedIDs = allowed

	return cfg, nil
}

// GeminiOptions builds the generation service options, validating the prompt
// language.
func (c *Config) GeminiOptions() (llm.Options, error) {
	prompts, err := llm.NewPrompts(c.PromptLanguage, c.PersonPlaceholder)
	if err != nil {
		return llm.Options{}, err
	}
	return llm.Options{
		APIKey:     c.GeminiAPIKey,
		BaseURL:    c.GeminiBaseURL,
		TextModel:  c.TextModel,
		ImageModel: c.ImageModel,
		Prompts:    &prompts,
	}, nil
}

// ParseIDList parses a comma separated list of Telegram user IDs.
func ParseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
