package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wayfinderhq/wayfinder/backend/internal/handler/assistant"
	"github.com/wayfinderhq/wayfinder/backend/internal/handler/stream"
	middlewarePkg "github.com/wayfinderhq/wayfinder/backend/internal/middleware"
	"github.com/wayfinderhq/wayfinder/backend/internal/service/conversation"
	"github.com/wayfinderhq/wayfinder/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(conversations *conversation.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	assistantHandler := assistant.New(conversations)
	streamHandler := stream.New(conversations)
	wsHandler := assistant.NewWebSocketHandler(conversations)

	r.Route("/api", func(api chi.Router) {
		assistantHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})

		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
