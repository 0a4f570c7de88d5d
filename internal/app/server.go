package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/TubeSage/internal/api/middlewares"
	"github.com/markdave123-py/TubeSage/internal/config"
	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/chat"
	"github.com/markdave123-py/TubeSage/internal/core/onboarding"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, onboardEngine *onboarding.Engine, chatStore *chat.Store, chatEngine *chat.Engine, log zerolog.Logger) *Server {
	onboardHandler := handlers.NewOnboardHandler(onboardEngine, log)
	chatHandler := handlers.NewChatHandler(chatStore, chatEngine, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	// No router-wide timeout: message_stream holds the connection open
	// for the full generation.

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Use(appMiddleware.SessionMiddleware(db, cfg.SessionSecret, cfg.DefaultChannelIDs, log))

	r.Route("/onboard", func(onboard chi.Router) {
		onboard.Post("/initiate_request", onboardHandler.InitiateRequest)
		onboard.Post("/process_request", onboardHandler.ProcessRequest)
		onboard.Get("/search_channels", onboardHandler.SearchChannels)
		onboard.Post("/channel_details/", onboardHandler.ChannelDetails)
	})

	r.Route("/chat", func(c chi.Router) {
		c.Post("/initiate/", chatHandler.Initiate)
		c.Post("/get_chat_id", chatHandler.GetChatID)
		c.Post("/history/", chatHandler.History)
		c.Post("/message_stream/", chatHandler.MessageStream)
		c.Post("/message/", chatHandler.Message)
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
