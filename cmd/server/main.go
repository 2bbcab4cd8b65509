package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/internship-allocator-go/pkg/config"
	"github.com/arnavshah/internship-allocator-go/pkg/database"
	"github.com/arnavshah/internship-allocator-go/pkg/engine"
	"github.com/arnavshah/internship-allocator-go/pkg/handlers"
	"github.com/arnavshah/internship-allocator-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewStructured("info", "json").Error("Failed to load config", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	eng, err := engine.New(cfg.Engine, log)
	if err != nil {
		log.WithError(err).Error("Invalid engine configuration", nil)
		os.Exit(1)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.WithError(err).Error("Could not open usage database", nil)
		os.Exit(1)
	}

	h := &handlers.Handler{DB: db, Engine: eng, Log: log}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Could not run server", nil)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown", nil)
	}
}
