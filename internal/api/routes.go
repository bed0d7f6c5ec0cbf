package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"aiResume/internal/access"
	"aiResume/internal/ai"
	"aiResume/internal/api/middleware"
	"aiResume/internal/auth"
	"aiResume/internal/config"
	"aiResume/internal/payment"
	"aiResume/internal/render"
	"aiResume/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	gate *access.Gate,
	sessions *access.Sessions,
	pipeline *render.Pipeline,
	aiGateway *ai.Gateway,
	broker *payment.Broker,
) {
	resumeHandler := NewResumeHandler(db, gate, sessions, pipeline, asynqClient, storageClient)
	authHandler := NewAuthHandler(db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour, cfg.Auth.LoginLockThreshold, cfg.Auth.LoginLockTTL(), cfg.Auth.CookieDomain)
	aiHandler := NewAIHandler(aiGateway)
	paymentHandler := NewPaymentHandler(db, broker, cfg.Stripe.PriceCents, cfg.Stripe.Currency, cfg.API.FrontendBaseURL)
	assetHandler := NewAssetHandler(db, storageClient, logger, cfg.Clamd.Addr)
	wsHandler := NewWsHandler(redisClient, authService, logger, []string{cfg.API.FrontendBaseURL})

	authMiddleware := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuthMiddleware(authService)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		aiGroup := v1.Group("/ai")
		aiGroup.Use(optionalAuth)
		{
			aiGroup.POST("/improve", aiHandler.ImproveText)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/latest", resumeHandler.GetLatestResume)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PATCH("/:id", resumeHandler.UpdateResumeFields)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.GET("/:id/preview", resumeHandler.PreviewResume)
			resumeGroup.GET("/:id/download", resumeHandler.DownloadResume)
			resumeGroup.POST("/:id/export", resumeHandler.ExportResume)
			resumeGroup.GET("/:id/download-link", resumeHandler.GetDownloadLink)
		}

		paymentGroup := v1.Group("/payments")
		paymentGroup.Use(authMiddleware)
		{
			paymentGroup.POST("/checkout", paymentHandler.CreateCheckout)
			paymentGroup.GET("/success", paymentHandler.CheckoutSuccess)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("", assetHandler.ListAssets)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
			assetGroup.DELETE("", assetHandler.DeleteAsset)
		}
	}
}
