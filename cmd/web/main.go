package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"autoblog/api/handlers"
	"autoblog/api/router"
	"autoblog/cache"
	"autoblog/cmd/web/event/dispatcher"
	"autoblog/config"
	"autoblog/db"
	"autoblog/eventbus"
	"autoblog/feeder"
	"autoblog/flash"
	"autoblog/httpclient"
	"autoblog/inference"
	"autoblog/parser"
	"autoblog/quota"
	"autoblog/renderer"
	"autoblog/repositories"
	"autoblog/services"
)

// @title           AutoBlog API
// @version         1.0
// @description     Summarize and tag blog posts
// @BasePath        /api/v1
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite (posts)
	gdb, err := db.OpenSQLite(cfg.Database.Path)
	if err != nil {
		config.Logger.Errorf("failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close(gdb)
	postRepo := repositories.NewPostRepository(gdb)

	flashStore, err := flash.NewStore(cfg.Flash.Secret, cfg.Flash.CookieName)
	if err != nil {
		config.Logger.Errorf("flash store: %v (set FLASH_SECRET)", err)
		os.Exit(1)
	}

	health := map[string]handlers.Pinger{}
	opts := inference.Options{
		Limiter: quota.NewSummaryQuotaLimiterFromConfig(cfg.SummaryQuota),
	}

	// MongoDB (ai_logs audit, optional)
	switch err := db.InitMongo(ctx, cfg.Mongo); {
	case errors.Is(err, db.ErrMongoDisabled):
		config.Logger.Info("mongo not configured, ai_logs audit disabled")
	case err != nil:
		config.Logger.Errorf("failed to initialize MongoDB, ai_logs audit disabled: %v", err)
	default:
		opts.Recorder = repositories.NewAILogRepository(db.MongoDatabase())
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = db.DisconnectMongo(shutdownCtx)
		}()
	}

	// Redis (inference result cache, optional)
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		inferenceCache := cache.NewInferenceCache(rdb, cfg.Redis.TTL)
		if err := inferenceCache.Ping(ctx); err != nil {
			config.Logger.Warnf("redis unreachable, inference cache disabled: %v", err)
		} else {
			opts.Cache = inferenceCache
			health["redis"] = inferenceCache
		}
	}

	pipeline, err := inference.New(ctx, cfg.Inference, opts)
	if err != nil {
		config.Logger.Errorf("failed to build inference pipeline: %v", err)
		os.Exit(1)
	}
	config.Logger.Infof("inference provider: %s", pipeline.Provider)

	// EventBus (optional)
	var bus eventbus.EventBus = eventbus.NopEventBus{}
	if cfg.Kafka.Brokers != "" {
		eventbus.SetPostEventsTopic(cfg.Kafka.Topic)
		if err := eventbus.EnsureTopics(cfg.Kafka.Brokers, eventbus.TopicPostEvents, cfg.Kafka.Partitions); err != nil {
			config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
		}
		kafkaBus, err := eventbus.NewKafkaEventBus(cfg.Kafka.Brokers)
		if err != nil {
			config.Logger.Errorf("failed to create event bus, events disabled: %v", err)
		} else {
			bus = kafkaBus
		}
	}
	defer bus.Close()

	// URL and feed import
	pageClient := httpclient.NewPublic(httpclient.Config{Timeout: httpclient.DefaultTimeout})
	importer := parser.NewImporter(pageClient)
	if cfg.Import.RenderJavaScript {
		importer.WithRenderer(renderer.New(cfg.Import))
		config.Logger.Infof("javascript rendering enabled (%s)", cfg.Import.ChromePath)
	}

	postSvc := services.NewPostService(postRepo, pipeline.Summarizer, pipeline.Tagger, cfg.Inference).
		WithEvents(dispatcher.NewEventDispatcher(bus)).
		WithFetcher(importer).
		WithFeeds(feeder.NewReader(pageClient), cfg.Import.FeedLimit)

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: router.WithCORS(router.New(router.Deps{
			Posts:  postSvc,
			Flash:  flashStore,
			Health: health,
		}), cfg.Server.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		config.Logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Logger.Errorf("server error: %v", err)
			cancel()
		}
	}()

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	config.Logger.Info("shutting down web server...")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.Logger.Errorf("server shutdown: %v", err)
	}
	postSvc.Wait()
	config.Logger.Info("web server stopped")
}
