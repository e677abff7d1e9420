package main

import (
	"context"
	"log"

	"openfeed/internal/broker"
	"openfeed/internal/cache"
	"openfeed/internal/config"
	"openfeed/internal/domain/post"
	"openfeed/internal/events"
	"openfeed/internal/handler"
	"openfeed/internal/middleware"
	"openfeed/internal/ratelimit"
	"openfeed/internal/realtime"
	"openfeed/internal/repository"
	"openfeed/internal/server"
	"openfeed/internal/services"
	"openfeed/pkg/database"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load("3002")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := server.NewLogger(cfg)
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		l.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&post.Post{}); err != nil {
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

	// An unreachable broker is fatal: writes must not proceed if their
	// events cannot be announced.
	b, err := broker.New(ctx, redisClient, broker.ConfigFrom(cfg.Broker))
	if err != nil {
		l.Fatalf("failed to connect to broker: %v", err)
	}

	cacheStore := cache.NewStore(redisClient, cache.Config{TTL: cfg.Cache.TTL})
	limiter := ratelimit.NewLimiter(redisClient, ratelimit.DefaultConfig())

	postService := services.NewPostService(
		repository.NewPostRepository(db),
		cacheStore,
		broker.NewPublisher(b),
		l,
	)
	postHandler := handler.NewPostHandler(postService)

	// Live feed: fan post.created out to WebSocket clients.
	hub := realtime.NewHub()
	go hub.Run(ctx)

	feedSub := broker.NewSubscriber(b, "posts-feed", l)
	if err := feedSub.Subscribe(ctx, events.EventTypePostCreated, realtime.FeedBridge(hub, l)); err != nil {
		l.Fatalf("failed to subscribe to %s: %v", events.EventTypePostCreated, err)
	}

	verifier := services.NewTokenVerifier(cfg.Auth)

	srv := server.New(cfg, l)

	posts := srv.Engine().Group("/v1/posts")
	{
		posts.GET("", postHandler.List)
		posts.GET("/:id", postHandler.Get)
		posts.POST("",
			middleware.AuthMiddleware(verifier),
			middleware.WriteRateLimitMiddleware(limiter),
			postHandler.Create,
		)
		posts.DELETE("/:id", middleware.AuthMiddleware(verifier), postHandler.Delete)
	}

	srv.Engine().GET("/v1/feed/live", middleware.AuthMiddleware(verifier), realtime.FeedHandler(hub, l))

	if err := srv.Start(); err != nil {
		l.Fatalf("server exited with error: %v", err)
	}
}
