package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/news_guard/internal/app"
	"github.com/Skotchmaster/news_guard/internal/classifier"
	"github.com/Skotchmaster/news_guard/internal/config"
	"github.com/Skotchmaster/news_guard/internal/es"
	"github.com/Skotchmaster/news_guard/internal/gemini"
	"github.com/Skotchmaster/news_guard/internal/hash"
	"github.com/Skotchmaster/news_guard/internal/mykafka"
	"github.com/Skotchmaster/news_guard/internal/ratelimit"
	"github.com/Skotchmaster/news_guard/internal/repo"
	"github.com/Skotchmaster/news_guard/internal/service"
	"github.com/Skotchmaster/news_guard/internal/tokens"
	httpserver "github.com/Skotchmaster/news_guard/internal/transport/http"
	"github.com/Skotchmaster/news_guard/pkg/logging"
	loggingmw "github.com/Skotchmaster/news_guard/pkg/middleware/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := app.OpenStore(initCtx, cfg, cfg.AutoMigrate)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer app.Close(db)
	store := repo.New(db)

	hasher, err := hash.New(cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}
	issuer, err := tokens.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	model, err := gemini.New(initCtx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("gemini: %v", err)
	}

	background := &service.Background{}
	authSvc := &service.AuthService{Users: store, Hasher: hasher, Tokens: issuer, Background: background}
	newsSvc := &service.NewsService{
		Records: store,
		Aggregator: &service.Aggregator{
			Local:           classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout),
			External:        model,
			ExternalTimeout: cfg.GeminiTimeout,
			Temperature:     cfg.VerdictTemperature,
		},
		Model:               model,
		GenerateTemperature: cfg.GenerateTemperature,
		GenerateTimeout:     cfg.GeminiTimeout,
		Background:          background,
	}

	if len(cfg.KafkaBrokers) > 0 {
		prod, err := mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		defer prod.Close()
		authSvc.Events = prod
		newsSvc.Events = prod
		logger.Info("kafka events enabled", "topic", cfg.KafkaTopic)
	}

	if cfg.ESURL != "" {
		client, err := es.NewClient(initCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		index := es.NewHistoryIndex(client, cfg.ESIndex)
		if err := index.EnsureIndex(initCtx); err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		newsSvc.Index = index
		logger.Info("history search enabled", "index", cfg.ESIndex)
	}

	if cfg.RedisAddr != "" {
		rdb, err := ratelimit.NewClient(initCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		newsSvc.Limiter = ratelimit.NewSlotLimiter(rdb, cfg.MaxExternalPerUser, 0, logger)
		logger.Info("external call limiter enabled", "max_per_user", cfg.MaxExternalPerUser)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:  &httpserver.AuthHTTP{Svc: authSvc},
		NewsHandler:  &httpserver.NewsHTTP{Svc: newsSvc},
		AdminHandler: &httpserver.AdminHTTP{Svc: authSvc},
		Session:      httpserver.NewSessionAuth(authSvc),
		Ready:        app.Ping(db),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
	if err := background.Wait(shutdownCtx); err != nil {
		logger.Warn("side effects still running at shutdown", "error", err)
	}
	logger.Info("server stopped")
}
