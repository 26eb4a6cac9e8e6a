package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/handlers"
	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/services"
	"task-tracker/backend/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := repositories.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := repositories.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	if err := repositories.SeedAdmin(db, cfg.Admin, cfg.Auth.BCryptCost); err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}

	var (
		redisClient *redis.Client
		jobQueue    *worker.JobQueue
		jobWorker   *worker.Worker
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("redis unreachable, background jobs disabled: %v", err)
			redisClient = nil
		}
	}

	if redisClient != nil {
		jobQueue = worker.NewJobQueue(redisClient)
		jobWorker = worker.NewWorker(worker.WorkerConfig{
			RedisClient: redisClient,
			Queues:      cfg.Worker.Queues,
		})
		jobWorker.RegisterHandler(worker.JobTypeTaskReminder, worker.NewTaskReminderHandler(db))
		jobWorker.RegisterHandler(worker.JobTypeTokenCleanup,
			worker.NewTokenCleanupHandler(db, jobQueue, cfg.Worker.TokenCleanupInterval))
		jobWorker.Start(cfg.Worker.Concurrency)

		if err := jobQueue.Enqueue(worker.DefaultQueue, worker.JobTypeTokenCleanup, nil); err != nil {
			log.Printf("failed to enqueue token cleanup job: %v", err)
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	router := setupRouter(cfg, db, jobQueue, redisClient, limiter)

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}
	limiter.Stop()
	if redisClient != nil {
		redisClient.Close()
	}
}

func setupRouter(cfg *config.Config, db *gorm.DB, jobQueue *worker.JobQueue, redisClient *redis.Client, limiter *middleware.RateLimiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := services.SystemClock
	auditService := services.NewAuditService(clock)
	authService := services.NewAuthService(cfg.Auth, clock)
	registerService := services.NewRegisterService(cfg.Auth.BCryptCost, clock)

	var reminders services.ReminderScheduler
	if jobQueue != nil {
		reminders = jobQueue
	}
	taskService := services.NewTaskService(clock, auditService, reminders)

	authHandler := handlers.NewAuthHandler(db, authService, cfg.Auth)
	refreshHandler := handlers.NewRefreshHandler(db, authService)
	logoutHandler := handlers.NewLogoutHandler(db, authService)
	registerHandler := handlers.NewRegisterHandler(db, registerService)
	taskHandler := handlers.NewTaskHandler(db, taskService)
	auditHandler := handlers.NewAuditHandler(db, auditService)
	userHandler := handlers.NewUserHandler(db)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryWithLog())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(limiter.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if redisClient != nil {
		monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router.GET("/health", monitoring.HealthHandler)
	router.GET("/metrics", monitoring.MetricsHandler)

	auth := router.Group("/auth")
	{
		auth.POST("/register", registerHandler.Registration)
		auth.POST("/token", authHandler.Token)
		auth.POST("/refresh", refreshHandler.Refresh)
		auth.POST("/logout", logoutHandler.Logout)
		auth.GET("/me",
			middleware.AuthzMiddleware(middleware.AuthzConfig{Secret: cfg.Auth.JWTSecret}),
			userHandler.GetProfile)
	}

	authenticated := middleware.AuthzMiddleware(middleware.AuthzConfig{Secret: cfg.Auth.JWTSecret})

	tasks := router.Group("/tasks", authenticated)
	{
		tasks.GET("", taskHandler.GetTasks)
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTaskByID)
		tasks.PUT("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
	}

	adminOnly := middleware.AuthzMiddleware(middleware.AuthzConfig{
		Secret: cfg.Auth.JWTSecret,
		Role:   models.RoleAdmin,
	})
	router.GET("/audit-logs", adminOnly, auditHandler.GetAuditLogs)

	return router
}
