package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"aiResume/internal/access"
	"aiResume/internal/ai"
	"aiResume/internal/api"
	"aiResume/internal/auth"
	"aiResume/internal/config"
	"aiResume/internal/database"
	"aiResume/internal/payment"
	"aiResume/internal/pdf"
	"aiResume/internal/ratelimit"
	"aiResume/internal/render"
	"aiResume/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := db.AutoMigrate(
		&database.User{},
		&database.Profile{},
		&database.Resume{},
		&database.Payment{},
		&database.Asset{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	privateKeyPEM, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read jwt private key: %v", err)
	}
	publicKeyPEM, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read jwt public key: %v", err)
	}
	authService, err := auth.NewAuthService(privateKeyPEM, publicKeyPEM, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	sessions := access.NewSessions(access.NewRedisStore(redisClient), 0)
	gate := access.NewGate(sessions)

	pipeline, err := render.NewPipeline(pdf.GeneratePDFFromHTML)
	if err != nil {
		log.Fatalf("init render pipeline: %v", err)
	}

	groqClient := ai.NewGroqClient(cfg.Groq.APIKey, cfg.Groq.BaseURL, cfg.Groq.Model, cfg.Groq.Timeout())
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisCounterStore(redisClient))
	aiGateway := ai.NewGateway(groqClient, limiter, logger, cfg.AI.RateLimit, cfg.AI.RateWindow())

	stripeClient := payment.NewStripeClient(cfg.Stripe.SecretKey)
	broker := payment.NewBroker(stripeClient, sessions,
		cfg.Stripe.PriceCents, cfg.Stripe.Currency, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, cfg, db, asynqClient, authService, redisClient, logger,
		storageClient, gate, sessions, pipeline, aiGateway, broker)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
