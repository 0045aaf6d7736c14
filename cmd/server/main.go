package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"pricewatch/internal/api/routes"
	"pricewatch/internal/cache"
	"pricewatch/internal/catalog"
	"pricewatch/internal/config"
	"pricewatch/internal/events"
	"pricewatch/internal/logging"
	"pricewatch/internal/pipeline"
	"pricewatch/internal/runs"
	"pricewatch/internal/schedule"
	"pricewatch/internal/scraper"
)

func main() {
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting pricewatch", map[string]interface{}{
		"site":   cfg.Site.Name,
		"engine": cfg.Site.Engine,
	})

	resultCache := cache.New(cfg.Scraper.CacheSize, cfg.Scraper.CacheTTL)

	sc, err := scraper.NewScraper(cfg, resultCache)
	if err != nil {
		logger.Fatal("Failed to create scraper", map[string]interface{}{
			"error": err.Error(),
		})
	}

	var store catalog.Store
	if cfg.Catalog.BaseURL != "" {
		client, err := catalog.NewHTTPClient(cfg)
		if err != nil {
			logger.Fatal("Failed to create catalog client", map[string]interface{}{
				"error": err.Error(),
			})
		}
		store = client
	} else {
		logger.Warn("Catalog not configured, runs need explicit identifiers", map[string]interface{}{})
	}

	manager := runs.NewManager(cfg, store)

	sinks := []events.Sink{events.NewLoggerSink(), manager}
	if cfg.Redis.EventsEnabled {
		redisSink, err := events.NewRedisSink(context.Background(), cfg)
		if err != nil {
			logger.Warn("Redis events disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			sinks = append(sinks, redisSink)
		}
	}
	sink := events.NewMultiSink(sinks...)

	manager.SetPipeline(pipeline.New(cfg, sc, store, sink))

	scheduler := schedule.New(cfg, manager)
	scheduler.Start()

	e := echo.New()
	e.HideBanner = true
	routes.SetupRoutes(e, cfg, sc, manager)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		scheduler.Stop()

		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error stopping run manager", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if err := sc.Cleanup(); err != nil {
			logger.Error("Error cleaning up scraper", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if err := sink.Close(); err != nil {
			logger.Error("Error closing event sinks", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{
				"error": err.Error(),
			})
		}

		logger.Info("Server shutdown complete")
	}()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{
		"address": address,
	})

	if err := e.Start(address); err != nil {
		logger.Info("Server stopped", map[string]interface{}{
			"reason": err.Error(),
		})
	}
}
