package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/MarnickvdA/streepn-serverless/internal/auth"
	"github.com/MarnickvdA/streepn-serverless/internal/middleware"
	"github.com/MarnickvdA/streepn-serverless/internal/service"
	"github.com/MarnickvdA/streepn-serverless/internal/storage/sqlite"
	"github.com/MarnickvdA/streepn-serverless/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logging.Setup()
	logger := slog.Default()

	dbPath := getEnv("DB_PATH", "./data/streepn.db")
	port := getEnv("PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		logger.Error("Invalid TOKEN_TTL", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", dbPath)

	jwtManager := auth.NewJWTManager(jwtSecret, tokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	if getEnv("GIN_MODE", "") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logging(), middleware.Metrics())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	authService := service.NewAuthService(authenticator, jwtManager, store, logger)
	authService.RegisterPublicRoutes(router)

	api := router.Group("/", middleware.RequireAuth(jwtManager))
	authService.RegisterRoutes(api)
	service.NewHouseService(store, logger).RegisterRoutes(api)
	service.NewStockService(store, logger).RegisterRoutes(api)
	service.NewTransactionService(store, logger).RegisterRoutes(api)
	service.NewSettlementService(store, logger).RegisterRoutes(api)

	// Wrap with h2c for HTTP/2 without TLS.
	handler := h2c.NewHandler(router, &http2.Server{})

	addr := fmt.Sprintf(":%s", port)
	logger.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
