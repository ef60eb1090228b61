package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cliniccall/cliniccall-ai/internal/api/router"
	appconfig "github.com/cliniccall/cliniccall-ai/internal/config"
	"github.com/cliniccall/cliniccall-ai/internal/convo"
	"github.com/cliniccall/cliniccall-ai/internal/directory"
	"github.com/cliniccall/cliniccall-ai/internal/http/handlers"
	"github.com/cliniccall/cliniccall-ai/internal/intent"
	"github.com/cliniccall/cliniccall-ai/internal/ledger"
	"github.com/cliniccall/cliniccall-ai/internal/notify"
	"github.com/cliniccall/cliniccall-ai/internal/observability/metrics"
	"github.com/cliniccall/cliniccall-ai/internal/patients"
	"github.com/cliniccall/cliniccall-ai/internal/triage"
	"github.com/cliniccall/cliniccall-ai/internal/urgent"
	"github.com/cliniccall/cliniccall-ai/internal/voice"
	"github.com/cliniccall/cliniccall-ai/internal/webchat"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cliniccall-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Core stores
	bookingLedger := ledger.New(logger, ledger.WithWindow(cfg.SlotWindowDays, cfg.SlotIntervalMinutes))
	bookingLedger.SeedDefaults()
	patientRepo := patients.NewInMemoryRepository()
	urgentStore := urgent.NewStore()

	// Intent classification and triage: Gemini when configured, keyword
	// rules otherwise.
	var classifier intent.Classifier
	var triager triage.Service
	chatMetrics := metrics.NewChatMetrics(prometheus.DefaultRegisterer)
	if cfg.GeminiAPIKey != "" {
		gc, err := intent.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, cfg.ClassifierTimeout, logger)
		if err != nil {
			logger.Error("failed to create gemini classifier", "error", err)
			os.Exit(1)
		}
		defer gc.Close()
		gc.SetFallbackHook(chatMetrics.ObserveClassifierFallback)
		classifier = gc

		ts, err := triage.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, cfg.ClassifierTimeout, logger)
		if err != nil {
			logger.Error("failed to create gemini triage service", "error", err)
			os.Exit(1)
		}
		defer ts.Close()
		triager = ts
	} else {
		logger.Warn("GEMINI_API_KEY not set, using keyword classification only")
		classifier = intent.NewKeywordClassifier()
		triager = triage.FallbackService{}
	}

	// Provider directory
	searcher := directory.NewNPIClient(directory.NPIConfig{
		BaseURL:    cfg.NPIBaseURL,
		ZipBaseURL: cfg.ZipLookupBaseURL,
		Timeout:    cfg.DirectoryTimeout,
		Limit:      cfg.DirectoryLimit,
	}, logger)

	// Email notifications
	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			sender = s
		}
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); s != nil {
			sender = s
		}
	}
	if sender == nil {
		sender = notify.NewStubEmailSender(logger)
	}
	notifier := notify.NewService(sender, logger)

	// Conversation state store
	var convoStore convo.Store
	if cfg.UseRedisState {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		convoStore = convo.NewRedisStore(rdb, cfg.ConversationTTL)
		logger.Info("conversation state backed by redis", "addr", cfg.RedisAddr)
	} else {
		ms := convo.NewMemoryStore(cfg.ConversationTTL)
		defer ms.Close()
		convoStore = ms
	}

	engine := convo.NewEngine(convo.EngineDeps{
		Classifier: classifier,
		Triager:    triager,
		Searcher:   searcher,
		Ledger:     bookingLedger,
		Patients:   patientRepo,
		Urgent:     urgentStore,
		Notifier:   notifier,
		Store:      convoStore,
		Metrics:    chatMetrics,
	}, logger)

	// Speech adapters
	speechClient := voice.NewClient(voice.Config{
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		ElevenLabsAPIKey: cfg.ElevenLabsAPIKey,
		Timeout:          cfg.VoiceTimeout,
	}, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		ChatHandler:         handlers.NewChatHandler(engine, logger),
		SlotsHandler:        handlers.NewSlotsHandler(bookingLedger, logger),
		AppointmentsHandler: handlers.NewAppointmentsHandler(bookingLedger, patientRepo, notifier, logger),
		UrgentCasesHandler:  handlers.NewUrgentCasesHandler(urgentStore, logger),
		VoiceHandler:        handlers.NewVoiceHandler(speechClient, speechClient, logger),
		WebChatHandler:      webchat.NewHandler(engine, logger),
		MetricsHandler:      promhttp.Handler(),
		AuthJWTSecret:       cfg.AuthJWTSecret,
		VoiceAPIToken:       cfg.VoiceAPIToken,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
