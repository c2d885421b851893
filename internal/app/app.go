package app

import (
	"context"
	"fmt"

	"coursebridge/internal/config"
	connector "coursebridge/internal/connectors/shopify"
	"coursebridge/internal/database"
	"coursebridge/internal/logger"
	"coursebridge/internal/mappings"
	"coursebridge/internal/services/courses"
	"coursebridge/internal/services/enrollment"
	"coursebridge/internal/services/lms"
	"coursebridge/internal/services/shopify"
	"coursebridge/internal/worker/processors"
	"coursebridge/internal/worker/processors/export"
)

// App holds the collaborators shared by the API server and the worker.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Database  *database.Database
	Mappings  *mappings.Mappings
	Resolver  *courses.Resolver
	Processor *processors.EventProcessor
	// Relay is set when webhooks are forwarded to the worker through Kafka.
	Relay *connector.Relay

	exporter export.Publisher
}

func New(cfg *config.Config, logger *logger.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	backend, err := a.mappingBackend()
	if err != nil {
		return nil, err
	}

	a.Mappings = mappings.New(backend, logger)
	if err := a.Mappings.Reload(context.Background()); err != nil {
		logger.Error("Failed to load mappings, starting with empty stores: %v", err)
	}
	a.Resolver = courses.NewResolver(a.Mappings, logger)

	lmsClient := lms.NewClient(cfg.LMSBaseURL, cfg.LMSClientID, cfg.LMSAccessToken, cfg.LMSTimeout, logger)
	reconciler := enrollment.NewReconciler(lmsClient, logger)

	var fetcher processors.OrderFetcher
	if cfg.ShopifyShopDomain != "" && cfg.ShopifyAccessToken != "" {
		fetcher = shopify.NewClient(cfg.ShopifyShopDomain, cfg.ShopifyAccessToken, cfg.ShopifyAPIVersion, logger)
	} else {
		logger.Info("Shopify API not configured; orders are read from webhook bodies")
	}

	a.exporter = export.New(cfg, logger)
	a.Processor = processors.NewEventProcessor(logger, fetcher, a.Resolver, reconciler, a.exporter)
	a.Relay = connector.New(cfg, logger)

	return a, nil
}

func (a *App) mappingBackend() (mappings.Backend, error) {
	switch a.Config.MappingBackend {
	case config.BackendFile, "":
		a.Logger.Info("Mappings stored as JSON files in %s", a.Config.DataDir)
		return mappings.NewFileBackend(a.Config.DataDir), nil
	case config.BackendDatabase:
		db, err := database.New(a.Config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.Database = db
		a.Logger.Info("Mappings stored in the database")
		return mappings.NewDBBackend(db.DB), nil
	default:
		return nil, fmt.Errorf("unknown mapping backend %q", a.Config.MappingBackend)
	}
}

// Close flushes the Kafka writers and closes the database, if any.
func (a *App) Close() error {
	var firstErr error
	if a.Relay != nil {
		if err := a.Relay.Close(); err != nil {
			firstErr = err
		}
	}
	if a.exporter != nil {
		if err := a.exporter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Database != nil {
		if err := a.Database.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
