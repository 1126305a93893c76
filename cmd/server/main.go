package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"decision-server/internal/config"
	"decision-server/internal/handler"
	"decision-server/internal/logger"
	"decision-server/internal/messaging"
	"decision-server/internal/middleware"
	"decision-server/internal/repository"
	"decision-server/internal/service"
	"decision-server/internal/session"
	"decision-server/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutput,
		Service:    "decision-server",
		Env:        cfg.Env,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Configuration loaded", cfg.LogFields()...)

	// --- AI ---
	tokens := service.NewTokenEstimator(cfg.AIModel, log)
	completion, err := service.NewCompletionClient(cfg, tokens, log)
	if err != nil {
		zap.L().Fatal("Failed to create completion client", zap.Error(err))
	}
	prompts := service.NewPromptBuilder(tokens, cfg.AIHistoryTokenBudget)
	scenarios := service.NewScenarioGenerator(completion, prompts, cfg.ScenarioMaxAttempts, log)
	feedback := service.NewFeedbackGenerator(completion, prompts, cfg.FeedbackMaxAttempts, log)

	// --- Хранилище сессий ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, closeRepo, err := setupSessionRepository(ctx, cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to set up session store", zap.String("store", cfg.SessionStore), zap.Error(err))
	}
	defer closeRepo()
	zap.L().Info("Session store ready", zap.String("store", cfg.SessionStore))

	// --- RabbitMQ ---
	publisher := messaging.NewNoopResultPublisher()
	if cfg.RabbitMQURL != "" {
		mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
		if err != nil {
			zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		ch, err := mqConn.Channel()
		if err != nil {
			zap.L().Fatal("Failed to open RabbitMQ channel", zap.Error(err))
		}
		defer ch.Close()

		publisher, err = messaging.NewRabbitMQResultPublisher(ch, cfg.SessionEventsQueue, log)
		if err != nil {
			zap.L().Fatal("Failed to create result publisher", zap.Error(err))
		}
	} else {
		zap.L().Info("RABBITMQ_URL not set, session events are not published")
	}

	manager := session.NewManager(scenarios, feedback, repo, publisher, session.Options{
		MaxScenarios:    cfg.SessionMaxScenarios,
		Cooldown:        cfg.GenerationCooldown,
		PrefetchEnabled: cfg.PrefetchEnabled,
		PrefetchTimeout: cfg.AITimeout * time.Duration(cfg.ScenarioMaxAttempts+1),
	}, log)

	evictCtx, stopEviction := context.WithCancel(context.Background())
	defer stopEviction()
	go manager.RunEviction(evictCtx, cfg.SessionTTL)

	// --- HTTP (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ZapLogger(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	templates, err := web.Templates()
	if err != nil {
		zap.L().Fatal("Failed to parse templates", zap.Error(err))
	}
	router.SetHTMLTemplate(templates)

	handler.NewHandler(manager, scenarios, feedback, log).RegisterRoutes(router)

	// Prometheus middleware подключается после регистрации роутов
	p.Use(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")
	stopEviction()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP server forced to shutdown", zap.Error(err))
	}

	prefetchDone := make(chan struct{})
	go func() {
		manager.Wait()
		close(prefetchDone)
	}()
	select {
	case <-prefetchDone:
	case <-shutdownCtx.Done():
		zap.L().Warn("Background prefetches did not finish before shutdown")
	}

	zap.L().Info("Server exited")
}

// setupSessionRepository выбирает хранилище по SESSION_STORE. Возвращаемая функция закрывает соединения.
func setupSessionRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.SessionRepository, func(), error) {
	noop := func() {}
	switch cfg.SessionStore {
	case config.StoreFile:
		repo, err := repository.NewFileSessionRepository(cfg.SessionFileDir, log)
		return repo, noop, err
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := client.Ping(ctx).Result(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("failed to ping redis: %w", err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Error("Failed to close redis client", zap.Error(err))
			}
		}
		return repository.NewRedisSessionRepository(client, cfg.SessionTTL, log), closeFn, nil
	default:
		return repository.NewMemorySessionRepository(), noop, nil
	}
}

// connectRabbitMQ подключается к RabbitMQ с несколькими попытками.
func connectRabbitMQ(uri string, log *zap.Logger) (*amqp.Connection, error) {
	const maxRetries = 5
	const retryDelay = 3 * time.Second

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(uri)
		if err == nil {
			log.Info("Connected to RabbitMQ")
			go func() {
				closed := conn.NotifyClose(make(chan *amqp.Error, 1))
				if closeErr := <-closed; closeErr != nil {
					log.Error("RabbitMQ connection closed", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		log.Warn("Failed to connect to RabbitMQ, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", retryDelay),
		)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}
