// Package router assembles the HTTP surface of the service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cliniccall/cliniccall-ai/internal/http/handlers"
	httpmiddleware "github.com/cliniccall/cliniccall-ai/internal/http/middleware"
	"github.com/cliniccall/cliniccall-ai/internal/webchat"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ChatHandler         *handlers.ChatHandler
	SlotsHandler        *handlers.SlotsHandler
	AppointmentsHandler *handlers.AppointmentsHandler
	UrgentCasesHandler  *handlers.UrgentCasesHandler
	VoiceHandler        *handlers.VoiceHandler
	WebChatHandler      *webchat.Handler
	MetricsHandler      http.Handler

	AuthJWTSecret      string
	VoiceAPIToken      string
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.ChatHandler != nil {
			public.Post("/api/chat", cfg.ChatHandler.HandleMessage)
		}
		if cfg.SlotsHandler != nil {
			public.Get("/api/slots", cfg.SlotsHandler.List)
		}
		if cfg.VoiceHandler != nil {
			public.Post("/api/voice/transcribe", cfg.VoiceHandler.Transcribe)
			public.Post("/api/voice/tts", cfg.VoiceHandler.Synthesize)
		}
		if cfg.WebChatHandler != nil {
			public.Get("/ws/chat", cfg.WebChatHandler.HandleWebSocket)
		}
	})

	// JWT-protected endpoints
	r.Group(func(protected chi.Router) {
		protected.Use(httpmiddleware.BearerJWT(cfg.AuthJWTSecret))
		if cfg.AppointmentsHandler != nil {
			protected.Post("/api/appointments/book", cfg.AppointmentsHandler.Book)
		}
		if cfg.UrgentCasesHandler != nil {
			protected.Get("/api/urgent-cases", cfg.UrgentCasesHandler.List)
		}
	})

	// Voice agent endpoints authenticated by shared token
	if cfg.AppointmentsHandler != nil {
		r.With(httpmiddleware.VoiceToken(cfg.VoiceAPIToken)).
			Post("/api/appointments/voice-book", cfg.AppointmentsHandler.VoiceBook)
	}

	return r
}
