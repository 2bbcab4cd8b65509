package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/internship-allocator-go/pkg/config"
	"github.com/arnavshah/internship-allocator-go/pkg/database"
	"github.com/arnavshah/internship-allocator-go/pkg/engine"
	"github.com/arnavshah/internship-allocator-go/pkg/handlers"
	"github.com/arnavshah/internship-allocator-go/pkg/logger"
)

var r http.Handler

func init() {
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load()
	if err != nil {
		r = unavailable(err)
		return
	}
	log := logger.NewStructured(cfg.Logging.Level, "json")

	eng, err := engine.New(cfg.Engine, log)
	if err != nil {
		log.WithError(err).Error("Invalid engine configuration", nil)
		r = unavailable(err)
		return
	}

	// Usage metering is best effort on serverless deployments
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.WithError(err).Warn("Usage metering disabled", nil)
		db = nil
	}

	r = handlers.NewRouter(&handlers.Handler{DB: db, Engine: eng, Log: log})
}

func unavailable(err error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "service misconfigured: "+err.Error(), http.StatusInternalServerError)
	})
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
