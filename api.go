package handler

import (
	"fmt"
	"net/http"
	"sync"

	"coursebridge/internal/api"
	"coursebridge/internal/app"
	"coursebridge/internal/config"
	"coursebridge/internal/logger"

	"github.com/gin-gonic/gin"
)

var (
	initOnce sync.Once
	router   *gin.Engine
	initErr  error
)

// initRouter builds the application once per serverless instance.
func initRouter() {
	cfg, err := config.Load()
	if err != nil {
		initErr = fmt.Errorf("failed to load configuration: %w", err)
		return
	}

	log := logger.New(cfg.LogLevel)

	a, err := app.New(cfg, log)
	if err != nil {
		initErr = fmt.Errorf("failed to initialize application: %w", err)
		return
	}

	router = api.New(cfg, log, a).GetRouter()
}

// Handler is the serverless entry point.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(initRouter)
	if initErr != nil {
		http.Error(w, initErr.Error(), http.StatusInternalServerError)
		return
	}

	// Serve the request
	router.ServeHTTP(w, r)
}
