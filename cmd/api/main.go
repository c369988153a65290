package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"taskboard/configs"
	"taskboard/internal/api"
	"taskboard/internal/api/handlers"
	"taskboard/internal/cache"
	"taskboard/internal/firebase"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/ws"
	"taskboard/pkg/database"
	"taskboard/pkg/logger"
)

func main() {
	// Load config
	cfg := configs.LoadConfig()

	// Inisialisasi logger
	logger.InitLoggers(cfg.LogDir)
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	ctx := context.Background()

	// Inisialisasi database
	db := database.ConnectDB(cfg)
	defer db.Close()
	logger.SystemLogger.Info("Database Connected")

	// Buat tabel jika belum ada
	repository.CreateTableIfNotExists(db)

	// Redis opsional; nil berarti cache task dimatikan
	redisClient := database.ConnectRedis(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
		logger.SystemLogger.Info("Redis Connected")
	}

	// Verifier Firebase untuk google-login; tanpa credentials route
	// google-login menolak dengan error generik
	var verifier handlers.IDTokenVerifier
	if cfg.FirebaseCredentials != "" {
		v, err := firebase.NewVerifier(ctx, cfg.FirebaseCredentials)
		if err != nil {
			logger.ErrorLogger.Error("Firebase verifier init failed", zap.Error(err))
		} else {
			verifier = v
			logger.SystemLogger.Info("Firebase verifier ready")
		}
	}

	// Hub websocket untuk event task
	hub := ws.NewHub()
	go hub.Run()

	secret := []byte(cfg.JWTSecret)
	authHandler := &handlers.Auth{DB: db, Verifier: verifier, Secret: secret}
	taskHandler := &handlers.Task{
		DB:        db,
		Cache:     cache.NewTaskCache(redisClient),
		Hub:       hub,
		UploadDir: cfg.UploadDir,
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 << 20, // upload multipart sampai 10MB
	})

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: cfg.CORSOrigins != "*", // cookie cross-site butuh origin eksplisit
	}))

	api.RegisterRoutes(app, api.Deps{
		Auth:      authHandler,
		Task:      taskHandler,
		Hub:       hub,
		Secret:    secret,
		UploadDir: cfg.UploadDir,
	})

	logger.SystemLogger.Info("Application ready", zap.String("addr", cfg.ListenAddr))
	if err := app.Listen(cfg.ListenAddr); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
