package api

import (
	"context"

	"crm-backend/internal/app/config"
	"crm-backend/internal/app/dsn"
	"crm-backend/internal/app/handler"
	"crm-backend/internal/app/middleware"
	"crm-backend/internal/app/redis"
	"crm-backend/internal/app/repository"
	"crm-backend/internal/app/storage"
	"crm-backend/internal/pkg"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StartServer собирает зависимости и запускает HTTP-сервер CRM.
func StartServer() {
	logrus.Info("Starting server")

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("error loading config: %v", err)
	}

	repo, err := repository.New(dsn.FromEnv())
	if err != nil {
		logrus.Fatalf("error initializing repository: %v", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logrus.Fatalf("error initializing redis: %v", err)
	}

	// Хранилище изображений опционально: без него недоступна только
	// загрузка картинок услуг
	minioClient, err := storage.NewMinIOClient(
		cfg.Minio.Endpoint,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.Bucket,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		logrus.Warnf("minio unavailable, service images disabled: %v", err)
		minioClient = nil
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	authMiddleware := middleware.NewAuthMiddleware(redisClient, cfg)
	authHandler := handler.NewAuthHandler(repo, redisClient, cfg)
	pageHandler := handler.NewHandler(repo)
	apiHandler := handler.NewAPIHandler(repo, minioClient, authHandler)

	application := pkg.NewApp(cfg, router, pageHandler, apiHandler, authMiddleware)
	application.RunApp()
}
