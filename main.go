package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/trackfolio/src/config"
	"github.com/username/trackfolio/src/database"
	"github.com/username/trackfolio/src/handlers"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/marketdata"
	"github.com/username/trackfolio/src/processors"
	"github.com/username/trackfolio/src/security"
	"github.com/username/trackfolio/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

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

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == config.Cfg.FrontendBaseURL {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Trackfolio backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 bytes long.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)

	logger.L.Info("Initializing market data clients...")
	rps, burst := config.Cfg.ProviderRateLimit, config.Cfg.ProviderBurst
	yahooClient := marketdata.NewYahooClient(rps, burst)
	alphaVantageClient := marketdata.NewAlphaVantageClient(config.Cfg.AlphaVantageAPIKey, rps, burst)
	coinGeckoClient := marketdata.NewCoinGeckoClient(rps, burst)
	explorerClient := marketdata.NewExplorerClient(config.Cfg.ExplorerBaseURL, config.Cfg.EtherscanAPIKey, rps, burst)
	processors.SetRateSource(marketdata.NewFrankfurterClient(rps, burst))

	logger.L.Info("Initializing services and handlers...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()

	importService := services.NewImportService(processors.NewTransactionProcessor(), reportCache)
	priceService := services.NewPriceService(database.DB, yahooClient, alphaVantageClient, coinGeckoClient)
	snapshotService := services.NewSnapshotService(database.DB, importService, priceService)
	newsService := services.NewNewsService(alphaVantageClient, priceService)
	walletService := services.NewWalletService(database.DB, explorerClient, coinGeckoClient)

	userHandler := handlers.NewUserHandler(authService, emailService)
	importHandler := handlers.NewImportHandler(importService)
	txHandler := handlers.NewTransactionHandler(importService)
	portfolioHandler := handlers.NewPortfolioHandler(importService, priceService, snapshotService)
	dividendHandler := handlers.NewDividendHandler(importService)
	newsHandler := handlers.NewNewsHandler(newsService)
	walletHandler := handlers.NewWalletHandler(walletService)
	handlers.InitializeGoogleOAuthConfig()

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	// Public auth routes
	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken(config.Cfg.CSRFAuthKey))
	apiRouter.HandleFunc("GET /api/auth/verify-email", userHandler.VerifyEmailHandler)
	apiRouter.HandleFunc("GET /api/auth/google/login", userHandler.HandleGoogleLogin)
	apiRouter.HandleFunc("GET /api/auth/google/callback", userHandler.HandleGoogleCallback)

	// State-changing auth routes behind the CSRF check
	authActionRouter := http.NewServeMux()
	authActionRouter.HandleFunc("POST /login", userHandler.LoginUserHandler)
	authActionRouter.HandleFunc("POST /register", userHandler.RegisterUserHandler)
	authActionRouter.HandleFunc("POST /refresh", userHandler.RefreshTokenHandler)
	authActionRouter.HandleFunc("POST /logout", userHandler.AuthMiddleware(userHandler.LogoutUserHandler))
	authActionRouter.HandleFunc("POST /request-password-reset", userHandler.RequestPasswordResetHandler)
	authActionRouter.HandleFunc("POST /reset-password", userHandler.ResetPasswordHandler)

	csrfProtection := handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)
	apiRouter.Handle("/api/auth/", http.StripPrefix("/api/auth", csrfProtection(authActionRouter)))

	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(userHandler.AuthMiddleware(handler))
	}

	apiRouter.Handle("POST /api/import", applyCsrfAndAuth(importHandler.HandleImport))
	apiRouter.Handle("GET /api/transactions", applyCsrfAndAuth(txHandler.HandleGetTransactions))
	apiRouter.Handle("DELETE /api/transactions/all", applyCsrfAndAuth(txHandler.HandleDeleteAllTransactions))
	apiRouter.Handle("GET /api/portfolio", applyCsrfAndAuth(portfolioHandler.HandleGetPortfolio))
	apiRouter.Handle("GET /api/portfolio/value", applyCsrfAndAuth(portfolioHandler.HandleGetPortfolioValue))
	apiRouter.Handle("GET /api/portfolio/history", applyCsrfAndAuth(portfolioHandler.HandleGetHistory))
	apiRouter.Handle("POST /api/portfolio/snapshot", applyCsrfAndAuth(portfolioHandler.HandleTakeSnapshot))
	apiRouter.Handle("GET /api/gains", applyCsrfAndAuth(portfolioHandler.HandleGetGains))
	apiRouter.Handle("GET /api/dividends", applyCsrfAndAuth(dividendHandler.HandleGetDividendSummary))
	apiRouter.Handle("GET /api/news", applyCsrfAndAuth(newsHandler.HandleGetNews))
	apiRouter.Handle("GET /api/fx", applyCsrfAndAuth(handlers.HandleGetFXRate))
	apiRouter.Handle("POST /api/wallets", applyCsrfAndAuth(walletHandler.HandleAddWallet))
	apiRouter.Handle("GET /api/wallets", applyCsrfAndAuth(walletHandler.HandleGetWallets))
	apiRouter.Handle("DELETE /api/wallets/{id}", applyCsrfAndAuth(walletHandler.HandleDeleteWallet))
	apiRouter.Handle("GET /api/user/has-data", applyCsrfAndAuth(userHandler.HandleCheckUserData))

	rootMux.Handle("/api/", apiRouter)
	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Trackfolio backend is running"})
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go snapshotService.RunScheduler(schedulerCtx, config.Cfg.SnapshotInterval)

	finalHandler := enableCORS(rateLimitMiddleware(rootMux))
	server := &http.Server{
		Addr:         ":" + config.Cfg.Port,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Error("Failed to start server", "error", err)
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L.Info("Shutting down server...")
	stopScheduler()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Server shutdown failed", "error", err)
	}
	logger.L.Info("Server stopped gracefully.")
}
