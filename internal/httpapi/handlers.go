package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/raine/telegram-prompt-bot/internal/llm"
	"github.com/rs/zerolog/log"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type promptResponse struct {
	Prompt string `json:"prompt"`
}

type editResponse struct {
	MIMEType string `json:"mime_type"`
	Image    string `json:"image"` // Data URI
	Text     string `json:"text,omitempty"`
}

type streamResponse struct {
	Text string `json:"text"`
}

type magicEdit struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

type pose struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

type catalogResponse struct {
	MagicEdits []magicEdit `json:"magic_edits"`
	Poses      []pose      `json:"poses"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes err as {"error":{"kind","message"}} with a status derived from
// its failure kind.
func (a *App) error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("requestId", RequestIDFromContext(r.Context())).Msg("request failed")
	}
	a.json(w, status, errorResponse{Error: body})
}

func classify(err error) (int, errorBody) {
	switch {
	case errors.Is(err, imagefile.ErrTooLarge), errors.Is(err, imagefile.ErrUnsupportedFormat):
		return http.StatusBadRequest, errorBody{Kind: "validation", Message: imagefile.UserMessage(err)}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorBody{Kind: "bad_request", Message: err.Error()}
	}

	var f *llm.Failure
	if !errors.As(err, &f) {
		return http.StatusBadGateway, errorBody{Kind: llm.KindGeneric.String(), Message: err.Error()}
	}
	body := errorBody{Kind: f.Kind.String(), Message: f.Error()}
	switch f.Kind {
	case llm.KindPrecondition:
		return http.StatusBadRequest, body
	case llm.KindQuotaExceeded:
		return http.StatusTooManyRequests, body
	case llm.KindBlocked, llm.KindNoImage, llm.KindNoResponse:
		return http.StatusUnprocessableEntity, body
	default:
		return http.StatusBadGateway, body
	}
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) MagicEdits(w http.ResponseWriter, r *http.Request) {
	resp := catalogResponse{MagicEdits: []magicEdit{}, Poses: []pose{}}
	for _, e := range a.Catalog.Edits {
		resp.MagicEdits = append(resp.MagicEdits, magicEdit{ID: e.ID, Name: e.Name, Prompt: e.Prompt})
	}
	for _, p := range a.Catalog.Poses {
		resp.Poses = append(resp.Poses, pose{ID: p.ID, Name: p.Name, Text: p.Text})
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(w, r)
	if err != nil {
		a.error(w, r, err)
		return
	}
	prompt, err := a.Service.Analyze(r.Context(), img)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, promptResponse{Prompt: prompt})
}

// Edit takes either a free-text instruction or the id of a magic edit.
func (a *App) Edit(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(w, r)
	if err != nil {
		a.error(w, r, err)
		return
	}

	instruction := r.FormValue("instruction")
	if id := r.FormValue("magic"); id != "" {
		preset, ok := a.Catalog.Edit(id)
		if !ok {
			a.error(w, r, fmt.Errorf("%w: unknown magic edit %q", errBadRequest, id))
			return
		}
		instruction = preset.Prompt
	}

	result, err := a.Service.Edit(r.Context(), img, instruction)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, editResponse{
		MIMEType: result.MIMEType,
		Image:    imagefile.DataURI(result.MIMEType, result.Image),
		Text:     result.Text,
	})
}

func (a *App) Improve(w http.ResponseWriter, r *http.Request) {
	req, err := decodePrompt(r)
	if err != nil {
		a.error(w, r, err)
		return
	}
	prompt, err := a.Service.Improve(r.Context(), req.Prompt)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, promptResponse{Prompt: prompt})
}

// Inspect returns the API response body untouched, or the concatenated text
// of the streaming endpoint when ?stream=1.
func (a *App) Inspect(w http.ResponseWriter, r *http.Request) {
	req, err := decodePrompt(r)
	if err != nil {
		a.error(w, r, err)
		return
	}

	if stream := r.URL.Query().Get("stream"); stream == "1" || stream == "true" {
		text, err := a.Service.StreamText(r.Context(), req.Prompt, nil)
		if err != nil {
			a.error(w, r, err)
			return
		}
		a.json(w, http.StatusOK, streamResponse{Text: text})
		return
	}

	raw, err := a.Service.RawRequest(r.Context(), req.Prompt)
	if err != nil {
		a.error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func decodePrompt(r *http.Request) (promptRequest, error) {
	var req promptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	return req, nil
}

// readImage reads the multipart "image" field. The part's Content-Type is
// trusted when present, otherwise the content is sniffed.
func readImage(w http.ResponseWriter, r *http.Request) (*imagefile.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, imagefile.ErrTooLarge
		}
		return nil, fmt.Errorf("%w: expected multipart form with an image field", errBadRequest)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: missing image field", errBadRequest)
	}
	defer file.Close()

	if header.Size > imagefile.MaxImageSize {
		return nil, imagefile.ErrTooLarge
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	mimeType := imagefile.DeclaredOrDetected(header.Header.Get("Content-Type"), data)
	return imagefile.New(data, mimeType, header.Filename)
}
