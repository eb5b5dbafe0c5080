package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/checkrun-api/internal/config"
	"github.com/yourusername/checkrun-api/internal/handler"
	"github.com/yourusername/checkrun-api/internal/middleware"
	pgRepo "github.com/yourusername/checkrun-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/checkrun-api/internal/repository/redis"
	"github.com/yourusername/checkrun-api/internal/service"
	ws "github.com/yourusername/checkrun-api/internal/websocket"
	"github.com/yourusername/checkrun-api/pkg/auth"
	"github.com/yourusername/checkrun-api/pkg/database"
	"github.com/yourusername/checkrun-api/pkg/metrics"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), database.DefaultPoolOptions(), !isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, os.Getenv("MIGRATIONS_SOURCE")); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	courseRepo := pgRepo.NewCourseRepo(db)
	runRepo := pgRepo.NewRunRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient, cfg.Redis.KeyPrefix)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs, cfg.JWT.WSTicketExpirySec)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Создаем контекст с отменой для корректного завершения работы горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appMetrics := metrics.NewMetrics()

	// WebSocket
	wsHub := ws.NewHub()
	wsManager := ws.NewManager(wsHub)

	// Инициализируем сервисы
	leaderboardService := service.NewLeaderboardService(
		courseRepo, runRepo, cacheRepo,
		time.Duration(cfg.Leaderboard.CacheTTLSec)*time.Second,
	)
	shareService := service.NewShareService(cfg.Share.BaseURL)
	courseService := service.NewCourseService(courseRepo, runRepo, leaderboardService)
	runService := service.NewRunService(courseRepo, runRepo, leaderboardService, shareService)
	runService.SetMetrics(appMetrics)
	sessionService := service.NewRunSessionService(
		courseRepo, runRepo, leaderboardService, wsManager,
		time.Duration(cfg.Scanner.DebounceWindowMs)*time.Millisecond,
		time.Duration(cfg.Session.IdleTTLMin)*time.Minute,
	)
	sessionService.SetMetrics(appMetrics)
	adminAuthService := service.NewAdminAuthService(cfg.Admin.PasswordHash, jwtService)

	// Удаляем брошенные сессии
	go sessionService.RunSweeper(ctx, time.Duration(cfg.Session.SweepIntervalSec)*time.Second)

	// Периодически обновляем gauge'и пула соединений и активных сессий
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if sqlDB, err := db.DB(); err == nil {
					appMetrics.RecordDBPoolStats(sqlDB.Stats())
				}
				appMetrics.SetActiveSessions(sessionService.ActiveSessions())
			case <-ctx.Done():
				return
			}
		}
	}()

	clientConfig := ws.ClientConfig{
		BufferSize:     cfg.WebSocket.ClientSendBuffer,
		PongWait:       time.Duration(cfg.WebSocket.PongWait) * time.Second,
		WriteWait:      time.Duration(cfg.WebSocket.WriteWait) * time.Second,
		MaxMessageSize: int64(cfg.WebSocket.MaxMessageSize),
	}

	routes := &handler.Routes{
		Auth:        handler.NewAuthHandler(adminAuthService),
		Course:      handler.NewCourseHandler(courseService, runService),
		Run:         handler.NewRunHandler(runService),
		Session:     handler.NewSessionHandler(sessionService, jwtService),
		Leaderboard: handler.NewLeaderboardHandler(leaderboardService),
		WS:          handler.NewWSHandler(wsHub, wsManager, sessionService, jwtService, clientConfig, cfg.CORS.AllowOrigins),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}, wsHub, sessionService),
		WSMetrics: wsHub,
		Metrics:   appMetrics.Handler(),

		AdminAuth:   middleware.NewAuthMiddleware(jwtService),
		RateLimiter: middleware.NewRateLimiter(middleware.NewRedisCounter(redisClient)),
		ImportLimit: middleware.PerMinute(cfg.Redis.KeyPrefix+"rl:import", cfg.RateLimit.ImportPerMinute),
		ScanLimit:   middleware.PerMinute(cfg.Redis.KeyPrefix+"rl:scans", cfg.RateLimit.ScansPerMinute),
		LoginLimit:  middleware.PerMinute(cfg.Redis.KeyPrefix+"rl:login", cfg.RateLimit.LoginPerMinute),
	}

	// Инициализируем роутер Gin
	router := gin.Default()

	// В production не доверяем прокси-заголовкам (защита от IP spoofing)
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(appMetrics.GinMiddleware())

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.Register(router)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Отправляем сигнал завершения для всех горутин
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
