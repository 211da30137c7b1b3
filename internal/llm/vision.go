package llm

import (
	"context"
	"encoding/json"

	"github.com/raine/telegram-prompt-bot/internal/imagefile"
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// EditResult is the outcome of a successful image edit.
type EditResult struct {
	Image    []byte
	MIMEType string
	Text     string // Any text the model returned alongside the image
}

// Analyzer generates a descriptive prompt for an image.
type Analyzer interface {
	Analyze(ctx context.Context, img *imagefile.Image) (string, error)
}

// Editor edits an image following a free-text instruction.
type Editor interface {
	Edit(ctx context.Context, img *imagefile.Image, instruction string) (*EditResult, error)
}

// PromptImprover rewrites a prompt into a richer variant.
type PromptImprover interface {
	Improve(ctx context.Context, prompt string) (string, error)
}

// Inspector issues minimal requests and returns what the API sent back.
type Inspector interface {
	// RawRequest returns the complete, unprocessed response body.
	RawRequest(ctx context.Context, prompt string) (json.RawMessage, error)
	// StreamText calls the streaming endpoint and concatenates the text fragments.
	// img is optional.
	StreamText(ctx context.Context, prompt string, img *imagefile.Image) (string, error)
}

// Client is everything the front ends need from the generation API.
type Client interface {
	Analyzer
	Editor
	PromptImprover
	Inspector
}
