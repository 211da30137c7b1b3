package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	APIVersion     = "v1beta"
)

type restInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type restPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *restInlineData `json:"inlineData,omitempty"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restRequest struct {
	Contents []restContent `json:"contents"`
}

func newTextRequest(prompt string) *restRequest {
	return &restRequest{
		Contents: []restContent{
			{Role: "user", Parts: []restPart{{Text: prompt}}},
		},
	}
}

func newInlinePart(ctx context.Context, img *imagefile.Image) (restPart, error) {
	encoded, err := imagefile.EncodeImage(ctx, img)
	if err != nil {
		return restPart{}, err
	}
	return restPart{InlineData: &restInlineData{MIMEType: img.MIMEType, Data: encoded}}, nil
}

// RESTClient talks to the generation API directly over HTTP. It sets no
// timeout of its own; a request lasts until it settles or ctx is done.
type RESTClient struct {
	httpClient *resty.Client
	baseURL    string
	apiKey     string
}

func NewRESTClient(baseURL, apiKey string) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &RESTClient{baseURL: baseURL, apiKey: apiKey}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(baseURL).
		SetHeaders(map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		})
	return c
}

func (c *RESTClient) req(ctx context.Context, model string) *resty.Request {
	return c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetPathParams(map[string]string{
			"version": APIVersion,
			"model":   model,
		})
}

// GenerateContent posts body and returns the raw response body on success.
func (c *RESTClient) GenerateContent(ctx context.Context, model string, body *restRequest) (json.RawMessage, error) {
	res, err := handleError(c.req(ctx, model).
		SetBody(body).
		Post("/{version}/models/{model}:generateContent"))
	if err != nil {
		return nil, err
	}
	raw := res.Body()
	if !json.Valid(raw) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// StreamGenerateContent posts body to the streaming endpoint and returns the
// concatenated text of every chunk.
func (c *RESTClient) StreamGenerateContent(ctx context.Context, model string, body *restRequest) (string, error) {
	res, err := c.req(ctx, model).
		SetBody(body).
		SetQueryParam("alt", "sse").
		SetDoNotParseResponse(true).
		Post("/{version}/models/{model}:streamGenerateContent")
	if err != nil {
		return "", err
	}
	raw := res.RawBody()
	defer raw.Close()

	if res.IsError() {
		data, err := readAllLimited(raw, 1<<20)
		if err != nil {
			log.Debug().Err(err).Int("status", res.StatusCode()).Msg("failed to read error body of stream response")
		}
		return "", &StatusError{StatusCode: res.StatusCode(), Body: string(data)}
	}
	return ParseStreamText(raw)
}

// handleError turns a non-2xx response into a *StatusError carrying the body.
// Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, &StatusError{StatusCode: res.StatusCode(), Body: res.String()}
	}
	return res, nil
}
