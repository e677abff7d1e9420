package main

import (
	"log"

	"openfeed/internal/config"
	"openfeed/internal/gateway"
	"openfeed/internal/middleware"
	"openfeed/internal/ratelimit"
	"openfeed/internal/server"
	"openfeed/internal/services"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load("3000")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := server.NewLogger(cfg)
	defer l.Sync()

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	limiter := ratelimit.NewLimiter(redisClient, ratelimit.DefaultConfig())

	proxy, err := gateway.New(cfg.Gateway, l)
	if err != nil {
		l.Fatalf("failed to build proxy: %v", err)
	}

	srv := server.New(cfg, l)

	engine := srv.Engine()
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.GlobalRateLimitMiddleware(limiter))

	// Brute-force protection for the identity endpoints sits at the
	// edge; the identity service limits again for direct callers.
	engine.Any("/v1/auth/*path", middleware.AuthRateLimitMiddleware(limiter), proxy.Handler())

	// Uniformly protected prefixes get their JWT checked at the edge.
	// /v1/posts mixes public reads with protected writes, so the posts
	// service enforces auth there itself.
	verifier := services.NewTokenVerifier(cfg.Auth)
	for _, prefix := range []string{"/v1/media", "/v1/feed"} {
		engine.Any(prefix+"/*path", middleware.AuthMiddleware(verifier), proxy.Handler())
		engine.Any(prefix, middleware.AuthMiddleware(verifier), proxy.Handler())
	}

	engine.NoRoute(proxy.Handler())

	if err := srv.Start(); err != nil {
		l.Fatalf("server exited with error: %v", err)
	}
}
