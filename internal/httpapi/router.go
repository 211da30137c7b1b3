// Package httpapi exposes the prompt operations over a small JSON API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/raine/telegram-prompt-bot/internal/llm"
	"github.com/raine/telegram-prompt-bot/internal/magic"
)

// maxUploadBytes leaves room for multipart overhead around a maximum-size image.
const maxUploadBytes = 6 << 20

// App holds the dependencies of the HTTP handlers.
type App struct {
	Service llm.Client
	Catalog *magic.Catalog
}

func NewRouter(app *App) http.Handler {
	if app.Catalog == nil {
		app.Catalog = magic.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestID, middleware.RealIP, middleware.Recoverer, AccessLog)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/magic-edits", app.MagicEdits)
		r.Post("/analyze", app.Analyze)
		r.Post("/edit", app.Edit)
		r.Post("/improve", app.Improve)
		r.Post("/inspect", app.Inspect)
	})

	return r
}
