package main

import (
	stdlog "log"
	"net/http"
	"time"

	"github.com/navrlluis/crypto-tax/src/config"
	"github.com/navrlluis/crypto-tax/src/database"
	"github.com/navrlluis/crypto-tax/src/handlers"
	"github.com/navrlluis/crypto-tax/src/logger"
	"github.com/navrlluis/crypto-tax/src/processors"
	"github.com/navrlluis/crypto-tax/src/services"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, X-Webhook-Secret")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Crypto tax webhook server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing result cache...")
	resultCache := cache.New(config.Cfg.ResultCacheExpiry, config.Cfg.ResultCacheCleanup)
	logger.L.Info("Result cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	emailService := services.NewEmailService()
	ledgerProcessor := processors.NewLedgerProcessor()
	calculationService := services.NewCalculationService(
		ledgerProcessor, emailService, resultCache, config.Cfg.ReportEmailEnabled,
	)
	calculationHandler := handlers.NewCalculationHandler(calculationService)

	logger.L.Info("Configuring routes...")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.HandleFunc("GET /{$}", handlers.HandleIndex)

	webhookAuth := handlers.WebhookAuthMiddleware(config.Cfg.WebhookSecret)
	mux.Handle("POST /calculate", webhookAuth(http.HandlerFunc(calculationHandler.HandleCalculate)))
	mux.Handle("GET /calculations", webhookAuth(http.HandlerFunc(calculationHandler.HandleGetRecentCalculations)))

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(mux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
