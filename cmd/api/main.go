package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/classes"
	"rollcall/internal/config"
	"rollcall/internal/handler"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/notify"
	"rollcall/internal/queue"
	"rollcall/internal/store"
	"rollcall/internal/users"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:notifications")
	}

	userRepo := users.NewRepository(db.Client)
	userSvc := users.NewService(userRepo, cfg.MinPasswordLen)
	classRepo := classes.NewRepository(db.Client)
	classSvc := classes.NewService(classRepo)
	attRepo := attendance.NewRepository(db.Client)
	attSvc := attendance.NewService(attRepo, float64(cfg.DefaultRadiusM))
	noteRepo := notify.NewRepository(db.Client)
	emitter := notify.NewEmitter(q)

	h := handler.New(cfg, userSvc, userRepo, classSvc, classRepo, attSvc, attRepo, noteRepo, emitter)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/refresh", h.Refresh)

	authed := r.Group("/api", auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	faculty := authed.Group("/faculty", auth.RequireRole(auth.RoleFaculty))
	{
		faculty.GET("/classes", h.ListClasses)
		faculty.POST("/classes", h.CreateClass)
		faculty.GET("/classes/:class_id/details", h.ClassDetails)
		faculty.DELETE("/classes/:class_id", h.DeleteClass)
		faculty.GET("/classes/:class_id/students", h.ClassRoster)
		faculty.POST("/classes/:class_id/sessions", h.OpenSession)
		faculty.PUT("/classes/:class_id/sessions/:session_id/end", h.CloseSession)
		faculty.GET("/classes/:class_id/sessions", h.SessionsByDate)
		faculty.GET("/classes/:class_id/reports/below-threshold", h.StudentsBelowThreshold)
		faculty.GET("/sessions/active", h.ActiveSessions)
		faculty.GET("/sessions/:session_id", h.SessionByID)
		faculty.GET("/sessions/:session_id/attendance", h.SessionRoster)
		faculty.POST("/sessions/:session_id/attendance", h.ManualMark)
	}

	student := authed.Group("/student", auth.RequireRole(auth.RoleStudent))
	{
		student.GET("/classes", h.MyClasses)
		student.POST("/classes/join", h.JoinClass)
		student.POST("/attendance", h.SubmitAttendance)
		student.GET("/classes/:class_id/attendance", h.AttendanceHistory)
		student.GET("/attendance/percentage", h.AttendancePercentage)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", h.Notifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.PUT("/:notification_id/read", h.MarkNotificationRead)
		notifications.PUT("/read-all", h.MarkAllNotificationsRead)
		notifications.DELETE("/:notification_id", h.DeleteNotification)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
