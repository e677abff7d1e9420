package main

import (
	"log"

	"openfeed/internal/config"
	"openfeed/internal/domain/user"
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
	cfg, err := config.Load("3001")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := server.NewLogger(cfg)
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		l.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&user.User{}, &user.RefreshToken{}); err != nil {
		l.Fatalf("failed to apply migrations: %v", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	limiter := ratelimit.NewLimiter(redisClient, ratelimit.DefaultConfig())

	authService := services.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db),
		cfg.Auth,
		l,
	)
	authHandler := handler.NewAuthHandler(authService)

	srv := server.New(cfg, l)

	auth := srv.Engine().Group("/v1/auth")
	{
		auth.POST("/register", middleware.AuthRateLimitMiddleware(limiter), authHandler.Register)
		auth.POST("/login", middleware.AuthRateLimitMiddleware(limiter), authHandler.Login)
		auth.POST("/refresh", middleware.AuthRateLimitMiddleware(limiter), authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	if err := srv.Start(); err != nil {
		l.Fatalf("server exited with error: %v", err)
	}
}
