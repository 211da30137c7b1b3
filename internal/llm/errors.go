package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Operation identifies which user action a failure belongs to.
type Operation string

const (
	OpAnalyze Operation = "analysis"
	OpEdit    Operation = "editing"
	OpImprove Operation = "improvement"
	OpInspect Operation = "inspection"
)

// Label is the prefix shown before a failure message.
func (o Operation) Label() string {
	switch o {
	case OpAnalyze:
		return "Error al analizar la imagen."
	case OpEdit:
		return "No se pudo editar la imagen."
	case OpImprove:
		return "No se pudo mejorar el prompt."
	case OpInspect:
		return "La petición a la API falló."
	default:
		return ""
	}
}

// Kind categorizes a failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindQuotaExceeded
	KindBlocked
	KindNoImage
	KindNoResponse
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindBlocked:
		return "blocked"
	case KindNoImage:
		return "no_image"
	case KindNoResponse:
		return "no_response"
	case KindPrecondition:
		return "precondition"
	default:
		return "generic"
	}
}

// Sentinels matched by errors.Is against a *Failure of the corresponding kind.
var (
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrBlocked       = errors.New("request blocked")
	ErrNoImage       = errors.New("no image produced")
	ErrNoResponse    = errors.New("no valid response")
	ErrPrecondition  = errors.New("precondition failed")
	ErrMissingAPIKey = errors.New("missing API key")
)

const (
	MsgUnknownError  = "Ocurrió un error desconocido."
	MsgQuotaExceeded = "Límite de cuota de API excedido. Por favor, revisa tu plan de facturación o inténtalo más tarde."
	MsgMissingAPIKey = "API key not found. Please set the GEMINI_API_KEY environment variable."
	MsgBlockedFmt    = "La solicitud fue bloqueada. Razón: %s. Por favor, modifica el prompt."
	MsgNoResponse    = "La IA no generó una respuesta válida. Inténtalo de nuevo."
	MsgNoImageFmt    = `La IA no generó una imagen y en su lugar respondió: "%s"`
	MsgNoImage       = "La IA no generó una imagen. Intenta con un prompt diferente."
	MsgNoImageGiven  = "Por favor, selecciona una imagen primero."
	MsgEmptyPrompt   = "Por favor, introduce un prompt."
)

// Failure is the normalized form of anything that went wrong in an operation.
type Failure struct {
	Op        Operation
	Kind      Kind
	Message   string // Human-readable, without the operation label
	Reason    string // Block reason for KindBlocked
	ModelText string // Text returned instead of an image for KindNoImage
	Code      int    // API error code when one was reported
	Status    string // API error status when one was reported
	Err       error  // Underlying cause, may be nil
}

func (f *Failure) Error() string {
	label := f.Op.Label()
	if label == "" || f.Kind == KindPrecondition {
		return f.Message
	}
	return label + " " + f.Message
}

// Unwrap exposes both the kind sentinel and the cause.
func (f *Failure) Unwrap() []error {
	var errs []error
	if s := f.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

func (f *Failure) sentinel() error {
	switch f.Kind {
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindBlocked:
		return ErrBlocked
	case KindNoImage:
		return ErrNoImage
	case KindNoResponse:
		return ErrNoResponse
	case KindPrecondition:
		return ErrPrecondition
	default:
		return nil
	}
}

func newFailure(op Operation, kind Kind, message string) *Failure {
	return &Failure{Op: op, Kind: kind, Message: message}
}

func preconditionFailure(op Operation, message string, cause error) *Failure {
	return &Failure{Op: op, Kind: KindPrecondition, Message: message, Err: cause}
}

// APIErrorBody is the error object the generation API returns.
type APIErrorBody struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// APIErrorEnvelope is the {"error": {...}} wrapper around APIErrorBody.
type APIErrorEnvelope struct {
	Error *APIErrorBody `json:"error"`
}

// StatusError is a non-2xx response received on the REST path. Its message is
// the raw response body, which usually holds an APIErrorEnvelope.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Body
}

// Normalize turns any error-like value into a *Failure for op. It never panics.
//
// Structured API errors are used directly; otherwise a message that is itself
// a JSON-encoded envelope is parsed; otherwise the raw message is kept.
// Quota exhaustion always yields MsgQuotaExceeded.
func Normalize(op Operation, v any) (f *Failure) {
	defer func() {
		if r := recover(); r != nil {
			f = &Failure{Op: op, Kind: KindGeneric, Message: MsgUnknownError}
		}
	}()

	if v == nil {
		return newFailure(op, KindGeneric, MsgUnknownError)
	}

	var cause error
	if err, ok := v.(error); ok {
		cause = err
		var existing *Failure
		if errors.As(err, &existing) {
			if existing.Op == "" {
				existing.Op = op
			}
			return existing
		}
	}

	if body := structuredError(v); body != nil {
		f = &Failure{Op: op, Kind: KindGeneric, Code: body.Code, Status: body.Status, Err: cause}
		switch {
		case body.Status == "RESOURCE_EXHAUSTED" || body.Code == http.StatusTooManyRequests:
			f.Kind = KindQuotaExceeded
			f.Message = MsgQuotaExceeded
		case body.Message != "":
			f.Message = body.Message
		case body.Code != 0 && http.StatusText(body.Code) != "":
			f.Message = http.StatusText(body.Code)
		case body.Status != "":
			f.Message = body.Status
		default:
			f.Message = MsgUnknownError
		}
		return f
	}

	message := rawMessage(v)
	if strings.TrimSpace(message) == "" {
		message = MsgUnknownError
	}
	return &Failure{Op: op, Kind: KindGeneric, Message: message, Err: cause}
}

// structuredError extracts an API error object from v, or returns nil.
func structuredError(v any) *APIErrorBody {
	switch e := v.(type) {
	case genai.APIError:
		return &APIErrorBody{Code: e.Code, Message: e.Message, Status: e.Status}
	case *genai.APIError:
		if e == nil {
			return nil
		}
		return &APIErrorBody{Code: e.Code, Message: e.Message, Status: e.Status}
	case APIErrorEnvelope:
		return usable(e.Error)
	case *APIErrorEnvelope:
		if e == nil {
			return nil
		}
		return usable(e.Error)
	case *APIErrorBody:
		return usable(e)
	case map[string]any:
		data, err := json.Marshal(e)
		if err != nil {
			return nil
		}
		return parseEnvelope(data)
	case string:
		return parseEnvelope([]byte(e))
	case []byte:
		return parseEnvelope(e)
	case error:
		var apiErr genai.APIError
		if errors.As(e, &apiErr) {
			return &APIErrorBody{Code: apiErr.Code, Message: apiErr.Message, Status: apiErr.Status}
		}
		var apiErrPtr *genai.APIError
		if errors.As(e, &apiErrPtr) && apiErrPtr != nil {
			return &APIErrorBody{Code: apiErrPtr.Code, Message: apiErrPtr.Message, Status: apiErrPtr.Status}
		}
		return parseEnvelope([]byte(e.Error()))
	}
	return nil
}

func parseEnvelope(data []byte) *APIErrorBody {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var env APIErrorEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil
	}
	return usable(env.Error)
}

func usable(body *APIErrorBody) *APIErrorBody {
	if body == nil || (body.Message == "" && body.Code == 0 && body.Status == "") {
		return nil
	}
	return body
}

func rawMessage(v any) string {
	switch e := v.(type) {
	case error:
		return e.Error()
	case string:
		return e
	case []byte:
		return string(e)
	case fmt.Stringer:
		return e.String()
	default:
		return fmt.Sprint(v)
	}
}
