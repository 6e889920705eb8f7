package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/config"
	"github.com/OHDSI/Hecate/pkg/database"
	"github.com/OHDSI/Hecate/pkg/handlers"
	"github.com/OHDSI/Hecate/pkg/index"
	"github.com/OHDSI/Hecate/pkg/llm"
	"github.com/OHDSI/Hecate/pkg/middleware"
	"github.com/OHDSI/Hecate/pkg/repositories"
	"github.com/OHDSI/Hecate/pkg/services"
	"github.com/OHDSI/Hecate/pkg/vector"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database.Database),
		zap.String("qdrant_collection", cfg.Qdrant.Collection),
	)

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to vocabulary database", zap.Error(err))
	}
	defer db.Close()

	store, err := vector.NewQdrantStore(&vector.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to vector store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	embedder := llm.NewClient(&llm.ClientConfig{
		Endpoint: cfg.Embeddings.Endpoint,
		APIKey:   cfg.Embeddings.APIKey,
		Model:    cfg.Embeddings.Model,
	}, logger)

	loadStart := time.Now()
	idx, err := index.Load(ctx, store, logger)
	if err != nil {
		logger.Fatal("Failed to build concept index", zap.Error(err))
	}
	logger.Info("Concept index built",
		zap.Int("names", idx.Len()),
		zap.Duration("duration", time.Since(loadStart)),
	)

	conceptRepo := repositories.NewConceptRepository(db)
	searchService := services.NewSearchService(conceptRepo, store, embedder, idx, logger)
	recommendService := services.NewRecommendationService(conceptRepo, store, idx, logger)
	conceptSetService := services.NewConceptSetService(conceptRepo, recommendService, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewSearchHandler(searchService, logger).RegisterRoutes(mux)
	handlers.NewConceptHandler(conceptRepo, logger).RegisterRoutes(mux)
	handlers.NewConceptSetHandler(conceptSetService, logger).RegisterRoutes(mux)

	handler := middleware.CORS(cfg.CORSOrigins)(middleware.RequestLogger(logger)(mux))

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting hecate", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
