package main

import (
	"context"
	"log"

	"openfeed/internal/broker"
	"openfeed/internal/config"
	"openfeed/internal/domain/media"
	"openfeed/internal/events"
	"openfeed/internal/handler"
	"openfeed/internal/middleware"
	"openfeed/internal/ratelimit"
	"openfeed/internal/repository"
	"openfeed/internal/server"
	"openfeed/internal/services"
	"openfeed/internal/storage"
	"openfeed/pkg/database"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load("3003")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := server.NewLogger(cfg)
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		l.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&media.Media{}); err != nil {
		l.Fatalf("failed to apply migrations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewClient(ctx, storage.S3Config{
		Region:     cfg.S3.Region,
		Bucket:     cfg.S3.Bucket,
		AccessKey:  cfg.S3.AccessKey,
		SecretKey:  cfg.S3.SecretKey,
		Endpoint:   cfg.S3.Endpoint,
		PublicBase: cfg.S3.PublicBase,
	})
	if err != nil {
		l.Fatalf("failed to init object storage: %v", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	b, err := broker.New(ctx, redisClient, broker.ConfigFrom(cfg.Broker))
	if err != nil {
		l.Fatalf("failed to connect to broker: %v", err)
	}

	limiter := ratelimit.NewLimiter(redisClient, ratelimit.DefaultConfig())

	mediaService := services.NewMediaService(repository.NewMediaRepository(db), store, l)
	mediaHandler := handler.NewMediaHandler(mediaService)

	// Cascade: deleting a post deletes its attached media.
	sub := broker.NewSubscriber(b, "media", l)
	if err := sub.Subscribe(ctx, events.EventTypePostDeleted, mediaService.HandlePostDeleted); err != nil {
		l.Fatalf("failed to subscribe to %s: %v", events.EventTypePostDeleted, err)
	}

	verifier := services.NewTokenVerifier(cfg.Auth)

	srv := server.New(cfg, l)

	group := srv.Engine().Group("/v1/media")
	{
		group.POST("/upload",
			middleware.AuthMiddleware(verifier),
			middleware.WriteRateLimitMiddleware(limiter),
			mediaHandler.Upload,
		)
		group.GET("", middleware.AuthMiddleware(verifier), mediaHandler.ListMine)
	}

	if err := srv.Start(); err != nil {
		l.Fatalf("server exited with error: %v", err)
	}
}
