// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/orms-project/orms/internal/ai"
	"github.com/orms-project/orms/internal/backend"
	"github.com/orms-project/orms/internal/handler"
	"github.com/orms-project/orms/internal/respond"
	"github.com/orms-project/orms/internal/session"
)

// Config holds server configuration.
type Config struct {
	Port     int
	Sessions *session.Manager
	Backend  *backend.Client
	AI       *ai.Client
	Captchas *respond.CaptchaStore
}

// Run starts the HTTP server with all routes registered. It blocks until
// ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	bh := handler.NewBuilderHandler(cfg.Sessions, cfg.Backend)
	ah := handler.NewAssistantHandler(cfg.AI, cfg.Sessions)
	rh := handler.NewRespondHandler(cfg.Backend, cfg.Captchas)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", bh.CreateSession)
			r.Get("/{id}", bh.GetSession)
			r.Delete("/{id}", bh.DeleteSession)
			r.Post("/{id}/ops", bh.ApplyOp)
			r.Post("/{id}/draft", bh.SaveDraft)
			r.Post("/{id}/publish/open", bh.OpenPublish)
			r.Post("/{id}/publish", bh.Publish)
			r.Post("/{id}/publish/close", bh.ClosePublishDialog)
			r.Post("/{id}/generate", ah.GenerateIntoSession)
		})

		r.Get("/forms", bh.ListForms)
		r.Get("/forms/{formID}/responses/export", bh.ExportResponses)

		r.Route("/assistant", func(r chi.Router) {
			r.Post("/chat", ah.Chat)
			r.Post("/generate", ah.Generate)
			r.Get("/ws", ah.ServeWS)
		})

		r.Route("/public/forms/{link}", func(r chi.Router) {
			r.Get("/", rh.GetForm)
			r.Post("/responses", rh.SubmitResponses)
			r.Post("/files", rh.UploadFile)
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
