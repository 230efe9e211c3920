package main

import (
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/username/taxpilot/src/config"
	"github.com/username/taxpilot/src/database"
	"github.com/username/taxpilot/src/handlers"
	"github.com/username/taxpilot/src/logger"
	"github.com/username/taxpilot/src/nbp"
	"github.com/username/taxpilot/src/processors"
	"github.com/username/taxpilot/src/services"
	"github.com/username/taxpilot/src/utils"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("TaxPilot engine server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)

	logger.L.Info("Initializing data loaders...")
	if err := utils.InitCountryData(config.Cfg.CountryDataPath); err != nil {
		logger.L.Error("Failed to load country data", "error", err)
	}
	if config.Cfg.HistoricalDataPath != "" {
		if err := processors.LoadHistoricalRates(config.Cfg.HistoricalDataPath); err != nil {
			logger.L.Error("Failed to load historical rates", "error", err)
		}
	}

	var fetcher processors.RateFetcher
	if config.Cfg.NBPFetchEnabled {
		fetcher = nbp.NewClient(config.Cfg.NBPAPIBaseURL, config.Cfg.RateResolveTimeout)
		logger.L.Info("NBP live rate fetching enabled", "baseURL", config.Cfg.NBPAPIBaseURL)
	} else {
		logger.L.Info("NBP live rate fetching disabled; relying on seeded rates only")
	}

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	rateResolver := processors.NewRateResolver(fetcher, config.Cfg.RateLookbackDays)
	enricher := processors.NewTransactionProcessor(rateResolver)
	fifoProcessor := processors.NewFifoProcessor()
	dividendProcessor := processors.NewDividendProcessor()
	portfolioService := services.NewPortfolioService()
	reportService := services.NewReportService(
		enricher, fifoProcessor, dividendProcessor, portfolioService, reportCache,
	)
	reportHandler := handlers.NewReportHandler(reportService, config.Cfg.MaxRequestBytes)

	logger.L.Info("Configuring routes...")
	router := chi.NewRouter()
	router.Use(handlers.CORSMiddleware(config.Cfg.AllowedOrigins))
	router.Use(handlers.RateLimitMiddleware)

	router.Get("/health", reportHandler.HandleHealth)
	router.Post("/api/report", reportHandler.HandleGenerateReport)

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	}
	logger.L.Info("Server stopped gracefully.")
}
