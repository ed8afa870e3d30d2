package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"

	"github.com/deliveryflow/agent/internal/agent"
	"github.com/deliveryflow/agent/internal/analytics"
	"github.com/deliveryflow/agent/internal/billing"
	"github.com/deliveryflow/agent/internal/catalog"
	"github.com/deliveryflow/agent/internal/config"
	"github.com/deliveryflow/agent/internal/conversation"
	"github.com/deliveryflow/agent/internal/media"
	evolutionapi "github.com/deliveryflow/agent/internal/messaging/evolution"
	"github.com/deliveryflow/agent/internal/orders"
	"github.com/deliveryflow/agent/internal/provider/groq"
	"github.com/deliveryflow/agent/internal/server"
	"github.com/deliveryflow/agent/internal/storage/sqlite"
	"github.com/deliveryflow/agent/internal/telemetry"
	"github.com/deliveryflow/agent/internal/tokens"
	evolutionhook "github.com/deliveryflow/agent/internal/webhook/evolution"
	"github.com/deliveryflow/agent/internal/webhook/hotmart"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("deliveryflow-agent", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	catalogStore, err := catalog.NewStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, logger)
	if err != nil {
		log.Fatalf("Failed to create catalog store: %v", err)
	}
	recorder, err := conversation.NewSupabaseRecorder(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, logger)
	if err != nil {
		log.Fatalf("Failed to create conversation recorder: %v", err)
	}
	orderStore, err := orders.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, logger)
	if err != nil {
		log.Fatalf("Failed to create order store: %v", err)
	}
	pixelStore, err := analytics.NewSupabaseConfigStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)
	if err != nil {
		log.Fatalf("Failed to create pixel config store: %v", err)
	}

	stages := newStageStore(ctx, cfg, logger)

	var dispatcher analytics.Dispatcher = analytics.NewMetaDispatcher(logger)
	if !cfg.Analytics.Enabled {
		dispatcher = &analytics.NoopDispatcher{}
		logger.Info("conversion dispatch disabled")
	}

	audit, err := sqlite.New(cfg.Audit.Path)
	if err != nil {
		log.Fatalf("Failed to open audit store: %v", err)
	}
	defer audit.Close()

	chat := groq.NewProvider(cfg.Groq.APIKey, cfg.Groq.Model, groq.WithBaseURL(cfg.Groq.BaseURL))
	sender := evolutionapi.NewClient(cfg.Evolution.BaseURL, cfg.Evolution.APIKey)
	transcriber := media.NewWhisperProcessor(cfg.OpenAI.APIKey, logger)

	pipeline := agent.NewPipeline(agent.PipelineDeps{
		Catalog:   catalogStore,
		Recorder:  recorder,
		Stages:    stages,
		Chat:      chat,
		Sender:    sender,
		Media:     transcriber,
		Orders:    orderStore,
		Pixels:    pixelStore,
		Analytics: dispatcher,
		Audit:     audit,
		Counter:   tokens.NewCounter(),
	}, agent.Options{
		Temperature:  cfg.Groq.Temperature,
		MaxTokens:    cfg.Groq.MaxTokens,
		HistoryLimit: cfg.Prompt.HistoryLimit,
		TokenBudget:  cfg.Prompt.TokenBudget,
	}, logger)

	supaClient, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, nil)
	if err != nil {
		log.Fatalf("Failed to create supabase client: %v", err)
	}
	billingStore := billing.NewSupabaseStore(supaClient, logger)
	provisioner := billing.NewProvisioner(supaClient.Auth.WithToken(cfg.Supabase.ServiceRoleKey), logger)
	mailer := newMailer(ctx, cfg, logger)

	srv := server.New(cfg.Server.Port, logger)
	srv.Router.Post("/functions/ai-agent", agent.NewHandler(pipeline, logger).ServeHTTP)
	srv.Router.Post("/webhooks/evolution", evolutionhook.NewHandler(catalogStore, pipeline, logger).ServeHTTP)
	srv.Router.Post("/webhooks/hotmart", hotmart.NewHandler(cfg.Hotmart.WebhookToken, billingStore, provisioner, mailer, logger).ServeHTTP)
	srv.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("agent started", slog.Int("port", cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("agent shutdown complete")
}

// newStageStore prefers Redis and falls back to the in-process store
// when Redis is unreachable. Stages then reset on restart, which only
// costs the assistant a re-greeting.
func newStageStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) conversation.StageStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory stage store",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()))
		return conversation.NewMemoryStageStore()
	}
	return conversation.NewRedisStageStore(client)
}

func newMailer(ctx context.Context, cfg *config.Config, logger *slog.Logger) billing.Mailer {
	if cfg.Email.From == "" {
		logger.Warn("email sender not configured, lifecycle emails will be logged only")
		return billing.NewLogMailer(logger)
	}
	mailer, err := billing.NewSESMailer(ctx, cfg.Email.Region, cfg.Email.From, logger)
	if err != nil {
		logger.Error("ses init failed, lifecycle emails will be logged only",
			slog.String("error", err.Error()))
		return billing.NewLogMailer(logger)
	}
	return mailer
}
