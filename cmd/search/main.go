package main

import (
	"context"
	"log"

	"openfeed/internal/broker"
	"openfeed/internal/cache"
	"openfeed/internal/config"
	"openfeed/internal/domain/searchdoc"
	"openfeed/internal/events"
	"openfeed/internal/handler"
	"openfeed/internal/middleware"
	"openfeed/internal/ratelimit"
	"openfeed/internal/repository"
	"openfeed/internal/server"
	"openfeed/internal/services"
	"openfeed/pkg/database"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load("3004")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := server.NewLogger(cfg)
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		l.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&searchdoc.Document{}); err != nil {
		l.Fatalf("failed to apply migrations: %v", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := broker.New(ctx, redisClient, broker.ConfigFrom(cfg.Broker))
	if err != nil {
		l.Fatalf("failed to connect to broker: %v", err)
	}

	cacheStore := cache.NewStore(redisClient, cache.Config{TTL: cfg.Cache.TTL})
	limiter := ratelimit.NewLimiter(redisClient, ratelimit.DefaultConfig())

	searchService := services.NewSearchService(repository.NewSearchRepository(db), cacheStore, l)
	searchHandler := handler.NewSearchHandler(searchService)

	// Projection: mirror the post stream into the search index.
	sub := broker.NewSubscriber(b, "search", l)
	if err := sub.Subscribe(ctx, events.EventTypePostCreated, searchService.HandlePostCreated); err != nil {
		l.Fatalf("failed to subscribe to %s: %v", events.EventTypePostCreated, err)
	}
	if err := sub.Subscribe(ctx, events.EventTypePostDeleted, searchService.HandlePostDeleted); err != nil {
		l.Fatalf("failed to subscribe to %s: %v", events.EventTypePostDeleted, err)
	}

	srv := server.New(cfg, l)

	srv.Engine().GET("/v1/search", middleware.SearchRateLimitMiddleware(limiter), searchHandler.Search)

	if err := srv.Start(); err != nil {
		l.Fatalf("server exited with error: %v", err)
	}
}
