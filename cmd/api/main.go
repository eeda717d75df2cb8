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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kidscheckin/internal/auth"
	"kidscheckin/internal/checkin"
	"kidscheckin/internal/config"
	"kidscheckin/internal/httpmiddleware"
	"kidscheckin/internal/queue"
	"kidscheckin/internal/store"
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
	db, err := store.NewDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "kidscheckin:events")
	}

	repo := checkin.NewRepository(db.Client)
	dir := checkin.NewDirectory(db.Client)
	ledger := checkin.NewLedger(db.Client)
	svc := checkin.NewService(repo, dir, ledger, cfg.RequestTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		ctx := c.Request.Context()
		redisHealthy := redisClient.Healthy(ctx)
		dbHealthy := db.Client.PingContext(ctx) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)

	// Parent-facing routes. The identity service stamps the parent id into
	// the token subject; ownership of the child is verified by the workflow.
	parent := r.Group("/v1", auth.RequireRole(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleParent), limiter.GinMiddleware())

	parent.POST("/requests", func(c *gin.Context) {
		var req struct {
			ChildID   string  `json:"child_id" binding:"required"`
			ServiceID string  `json:"service_id" binding:"required"`
			Notes     *string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		created, err := svc.Create(c.Request.Context(), auth.Subject(c), req.ChildID, req.ServiceID, req.Notes)
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}

		publish(c.Request.Context(), q, queue.EventRequestCreated, created.ID)
		c.JSON(http.StatusCreated, created)
	})

	parent.GET("/requests", func(c *gin.Context) {
		requests, err := svc.ListActive(c.Request.Context(), auth.Subject(c))
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": requests})
	})

	parent.DELETE("/requests/:id", func(c *gin.Context) {
		cancelled, err := svc.Cancel(c.Request.Context(), c.Param("id"), auth.Subject(c))
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, cancelled)
	})

	// Staff-facing routes keyed by the request token a parent presents at
	// the kiosk.
	staff := r.Group("/v1/staff", auth.RequireRole(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleStaff, auth.RoleAdmin))

	staff.GET("/requests/:token", func(c *gin.Context) {
		req, err := svc.ResolveByToken(c.Request.Context(), c.Param("token"))
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, req)
	})

	staff.POST("/requests/:token/approve", func(c *gin.Context) {
		var body struct {
			Notes *string `json:"notes"`
		}
		// Body is optional on approve; notes ride along into the ledger.
		_ = c.ShouldBindJSON(&body)
		result, err := svc.Approve(c.Request.Context(), c.Param("token"), auth.Subject(c), body.Notes)
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		publish(c.Request.Context(), q, queue.EventRequestApproved, result.RequestID)
		c.JSON(http.StatusOK, result)
	})

	staff.POST("/requests/:token/reject", func(c *gin.Context) {
		var body struct {
			Reason string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rejected, err := svc.Reject(c.Request.Context(), c.Param("token"), auth.Subject(c), body.Reason)
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		publish(c.Request.Context(), q, queue.EventRequestRejected, rejected.ID)
		c.JSON(http.StatusOK, rejected)
	})

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

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// errorStatus maps workflow error kinds to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, checkin.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkin.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, checkin.ErrWindowClosed),
		errors.Is(err, checkin.ErrAgeIneligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkin.ErrCapacityExceeded),
		errors.Is(err, checkin.ErrAlreadyCheckedIn),
		errors.Is(err, checkin.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, checkin.ErrExpired):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func publish(ctx context.Context, q queue.Queue, eventType, requestID string) {
	if err := q.Publish(ctx, queue.Message{Type: eventType, Body: []byte(requestID)}); err != nil {
		log.Printf("queue publish %s failed: %v", eventType, err)
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
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

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
