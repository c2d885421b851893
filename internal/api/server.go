package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"coursebridge/internal/api/handlers"
	"coursebridge/internal/api/middleware"
	"coursebridge/internal/app"
	"coursebridge/internal/config"
	"coursebridge/internal/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, a *app.App) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.MappingBackend)
	var forwarder handlers.WebhookForwarder
	if a.Relay != nil {
		forwarder = a.Relay
	}
	webhookHandler := handlers.NewWebhookHandler(logger, cfg, a.Processor, forwarder)
	mappingHandler := handlers.NewMappingHandler(a.Mappings, a.Resolver, logger)

	router.GET("/health", healthHandler.Check)

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Webhooks
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/shopify", webhookHandler.Shopify)
		}

		// Mappings
		m := v1.Group("/mappings")
		{
			m.GET("/products", mappingHandler.ListProducts)
			m.POST("/products", mappingHandler.SetProduct)
			m.DELETE("/products/:productId", mappingHandler.DeleteProduct)

			m.GET("/bundles", mappingHandler.ListBundles)
			m.POST("/bundles", mappingHandler.SetBundle)
			m.DELETE("/bundles/:bundleProductId", mappingHandler.DeleteBundle)

			m.GET("/bundle-names", mappingHandler.ListBundleNames)
			m.POST("/bundle-names", mappingHandler.SetBundleName)
			m.GET("/bundle-names/lookup", mappingHandler.LookupBundleName)
			m.DELETE("/bundle-names", mappingHandler.DeleteBundleName)
			m.DELETE("/bundle-names/:bundleName", mappingHandler.DeleteBundleName)

			m.GET("/resolve", mappingHandler.Resolve)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// GetRouter returns the Gin router for serverless handlers and tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
