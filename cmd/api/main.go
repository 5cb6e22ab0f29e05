package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kianyangchn/mainu-web/internal/api"
	"github.com/kianyangchn/mainu-web/internal/config"
	"github.com/kianyangchn/mainu-web/internal/db"
	"github.com/kianyangchn/mainu-web/internal/llm"
	"github.com/kianyangchn/mainu-web/internal/session"
	"github.com/kianyangchn/mainu-web/internal/share"
	"github.com/kianyangchn/mainu-web/internal/storage"
	"github.com/kianyangchn/mainu-web/pkg/logger"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	zapLogger, err := logger.New()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backend selection happens exactly once, here. Everything downstream
	// sees the same store contract regardless of backing.
	var (
		sessions *session.Store
		shares   *share.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		defer pool.Close()
		sessions = session.NewPostgresStore(pool, cfg.Session.TTL, cfg.Session.RetryLimit)
		shares = share.NewPostgresStore(pool, cfg.Share.TTL)
		zapLogger.Info("token stores backed by postgres")
	} else {
		sessions = session.NewMemoryStore(cfg.Session.TTL, cfg.Session.RetryLimit)
		shares = share.NewMemoryStore(cfg.Share.TTL)
		zapLogger.Info("token stores backed by in-process memory")
	}

	var archive api.PhotoArchiver
	if cfg.R2.Enabled() {
		r2, err := storage.NewR2Client(ctx, cfg.R2)
		if err != nil {
			zapLogger.Fatal("r2 client failed", zap.Error(err))
		}
		archive = r2
		zapLogger.Info("photo archive enabled", zap.String("bucket", cfg.R2.BucketName))
	}

	host := llm.NewOpenAIClient(cfg.OpenAI.APIKey, zapLogger)
	pipeline := llm.NewService(host, llm.Config{
		Model:                 cfg.OpenAI.Model,
		QuickSuggestionModel:  cfg.OpenAI.QuickSuggestionModel,
		ExtractionTimeout:     cfg.OpenAI.ExtractionTimeout,
		SuggestionTimeout:     cfg.OpenAI.SuggestionTimeout,
		DefaultOutputLanguage: cfg.DefaultOutputLanguage,
	}, zapLogger)

	service := api.NewService(pipeline, sessions, shares, archive, zapLogger)
	handler := api.NewHandler(service, zapLogger)

	router := gin.Default()
	router.MaxMultipartMemory = 32 << 20

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	api.RegisterRoutes(router, handler)

	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown failed", zap.Error(err))
	}
}
