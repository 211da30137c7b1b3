package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image-preview"
)

// Gemini pricing (per million tokens)
var modelPrices = map[string]struct{ input, output float64 }{
	"gemini-2.5-flash":               {0.30, 2.50},
	"gemini-2.5-flash-image-preview": {0.30, 30.00},
	"gemini-2.5-flash-image":         {0.30, 30.00},
}

// contentGenerator is the part of genai.Models the service uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures a GeminiService.
type Options struct {
	APIKey     string
	BaseURL    string // Defaults to DefaultBaseURL
	TextModel  string // Analysis, prompt improvement and inspection
	ImageModel string // Image edits
	Prompts    *Prompts
	HTTPClient *http.Client
}

// GeminiService implements Client on top of the Gemini API. The genai SDK
// serves analyze, edit and improve; raw and streaming requests go through
// the REST client so the response can be returned untouched.
type GeminiService struct {
	apiKey     string
	models     contentGenerator
	rest       *RESTClient
	prompts    Prompts
	textModel  string
	imageModel string
}

// NewGeminiService creates a service. A missing API key is not an error here:
// every operation reports it before touching the network.
func NewGeminiService(ctx context.Context, opts Options) (*GeminiService, error) {
	s := &GeminiService{
		apiKey:     strings.TrimSpace(opts.APIKey),
		prompts:    DefaultPrompts(),
		textModel:  opts.TextModel,
		imageModel: opts.ImageModel,
	}
	if s.textModel == "" {
		s.textModel = DefaultTextModel
	}
	if s.imageModel == "" {
		s.imageModel = DefaultImageModel
	}
	if opts.Prompts != nil {
		s.prompts = *opts.Prompts
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	s.rest = NewRESTClient(baseURL, s.apiKey)

	if s.apiKey == "" {
		return s, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     s.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL + "/",
			APIVersion: APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.models = client.Models
	return s, nil
}

// TextModel returns the model used for analysis and prompt improvement.
func (s *GeminiService) TextModel() string {
	return s.textModel
}

// Prompts returns the instruction builder in use.
func (s *GeminiService) Prompts() Prompts {
	return s.prompts
}

func (s *GeminiService) checkAPIKey(op Operation) error {
	if s.apiKey == "" || s.models == nil {
		return preconditionFailure(op, MsgMissingAPIKey, ErrMissingAPIKey)
	}
	return nil
}

// Analyze asks the text/vision model for a descriptive prompt of img and
// returns the generated text verbatim.
func (s *GeminiService) Analyze(ctx context.Context, img *imagefile.Image) (string, error) {
	if err := s.checkAPIKey(OpAnalyze); err != nil {
		return "", err
	}
	if img == nil || len(img.Data) == 0 {
		return "", preconditionFailure(OpAnalyze, MsgNoImageGiven, nil)
	}

	parts := []*genai.Part{
		imagePart(img),
		genai.NewPartFromText(s.prompts.Analysis()),
	}
	result, err := s.generate(ctx, OpAnalyze, s.textModel, parts, nil)
	if err != nil {
		return "", err
	}
	if err := checkCandidates(OpAnalyze, result); err != nil {
		return "", err
	}
	return result.Text(), nil
}

// Edit asks the image model to apply instruction to img. The first candidate
// is scanned for inline image data; text returned instead of an image is
// surfaced in the failure.
func (s *GeminiService) Edit(ctx context.Context, img *imagefile.Image, instruction string) (*EditResult, error) {
	if err := s.checkAPIKey(OpEdit); err != nil {
		return nil, err
	}
	if img == nil || len(img.Data) == 0 || strings.TrimSpace(instruction) == "" {
		return nil, preconditionFailure(OpEdit, "Por favor, sube una imagen y escribe un prompt.", nil)
	}

	parts := []*genai.Part{
		imagePart(img),
		genai.NewPartFromText(s.prompts.Edit(instruction)),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	result, err := s.generate(ctx, OpEdit, s.imageModel, parts, config)
	if err != nil {
		return nil, err
	}
	return extractEditResult(result)
}

func extractEditResult(result *genai.GenerateContentResponse) (*EditResult, error) {
	if err := checkCandidates(OpEdit, result); err != nil {
		return nil, err
	}

	edit := &EditResult{}
	var texts []string
	if content := result.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				edit.Image = part.InlineData.Data
				edit.MIMEType = part.InlineData.MIMEType
			} else if part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
	}
	edit.Text = strings.TrimSpace(strings.Join(texts, "\n"))

	if edit.Image != nil {
		if edit.MIMEType == "" {
			edit.MIMEType = "image/png"
		}
		return edit, nil
	}
	if edit.Text != "" {
		f := newFailure(OpEdit, KindNoImage, fmt.Sprintf(MsgNoImageFmt, edit.Text))
		f.ModelText = edit.Text
		return nil, f
	}
	return nil, newFailure(OpEdit, KindNoImage, MsgNoImage)
}

// Improve rewrites prompt into a richer variant in the same language.
func (s *GeminiService) Improve(ctx context.Context, prompt string) (string, error) {
	if err := s.checkAPIKey(OpImprove); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", preconditionFailure(OpImprove, MsgEmptyPrompt, nil)
	}

	parts := []*genai.Part{genai.NewPartFromText(s.prompts.Improve(prompt))}
	result, err := s.generate(ctx, OpImprove, s.textModel, parts, nil)
	if err != nil {
		return "", err
	}
	if err := checkCandidates(OpImprove, result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text()), nil
}

// RawRequest sends prompt as a single text part and returns the response body.
func (s *GeminiService) RawRequest(ctx context.Context, prompt string) (json.RawMessage, error) {
	if err := s.checkAPIKey(OpInspect); err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, preconditionFailure(OpInspect, MsgEmptyPrompt, nil)
	}

	body, err := s.rest.GenerateContent(ctx, s.textModel, newTextRequest(prompt))
	if err != nil {
		log.Error().Err(err).Str("model", s.textModel).Msg("raw request failed")
		return nil, Normalize(OpInspect, err)
	}
	return body, nil
}

// StreamText sends prompt (and optionally img) to the streaming endpoint and
// returns the concatenated text.
func (s *GeminiService) StreamText(ctx context.Context, prompt string, img *imagefile.Image) (string, error) {
	if err := s.checkAPIKey(OpInspect); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", preconditionFailure(OpInspect, MsgEmptyPrompt, nil)
	}

	req := newTextRequest(prompt)
	if img != nil {
		part, err := newInlinePart(ctx, img)
		if err != nil {
			return "", Normalize(OpInspect, err)
		}
		req.Contents[0].Parts = append([]restPart{part}, req.Contents[0].Parts...)
	}

	text, err := s.rest.StreamGenerateContent(ctx, s.textModel, req)
	if err != nil {
		log.Error().Err(err).Str("model", s.textModel).Msg("stream request failed")
		return "", Normalize(OpInspect, err)
	}
	return text, nil
}

// generate executes the SDK call and logs usage.
func (s *GeminiService) generate(ctx context.Context, op Operation, model string, parts []*genai.Part, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	start := time.Now()
	result, err := s.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		log.Error().Err(err).Str("model", model).Str("op", string(op)).Msg("gemini call failed")
		return nil, Normalize(op, err)
	}
	if result == nil {
		return nil, newFailure(op, KindNoResponse, MsgNoResponse)
	}

	usage := usageFromResponse(model, result)
	log.Info().
		Str("model", model).
		Str("op", string(op)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Dur("duration", time.Since(start)).
		Msg("gemini llm call")

	return result, nil
}

// checkCandidates reports a blocked or empty response.
func checkCandidates(op Operation, result *genai.GenerateContentResponse) error {
	if len(result.Candidates) > 0 && result.Candidates[0] != nil {
		return nil
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		reason := string(result.PromptFeedback.BlockReason)
		f := newFailure(op, KindBlocked, fmt.Sprintf(MsgBlockedFmt, reason))
		f.Reason = reason
		return f
	}
	return newFailure(op, KindNoResponse, MsgNoResponse)
}

func imagePart(img *imagefile.Image) *genai.Part {
	return &genai.Part{
		InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType},
	}
}

func usageFromResponse(model string, result *genai.GenerateContentResponse) Usage {
	usage := Usage{}
	if result.UsageMetadata == nil {
		return usage
	}
	usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
	usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
	usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
	if price, ok := modelPrices[model]; ok {
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, price.input, price.output)
	}
	return usage
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
