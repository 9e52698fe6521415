package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/grocer/services/assistant/config"
	"example.com/grocer/services/assistant/internal/api"
	"example.com/grocer/services/assistant/internal/cache"
	"example.com/grocer/services/assistant/internal/extractor"
	"example.com/grocer/services/assistant/internal/metrics"
	"example.com/grocer/services/assistant/internal/models"
	"example.com/grocer/services/assistant/internal/repositories"
	"example.com/grocer/services/assistant/internal/search"
	"example.com/grocer/services/assistant/internal/tracing"
	"example.com/grocer/services/assistant/internal/workflow"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server to handle conversation turns, order lookups and catalog browsing`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, readOnlyDB, err := initDatabases(cfg)
	if err != nil {
		return err
	}

	deps, err := initDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.tracer.Close()

	workflowRouter, orderRepo, catalogRepo := buildWorkflow(cfg, db, readOnlyDB, deps)

	server := api.NewServer(cfg, workflowRouter, orderRepo, catalogRepo, deps.metrics, deps.tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

// dependencies bundles the shared infrastructure clients. Redis,
// Elasticsearch and tracing degrade to disabled instead of failing
// startup; only the database is load-bearing.
type dependencies struct {
	redisCache    *cache.RedisCache
	elasticClient *search.ElasticClient
	tracer        tracing.Tracer
	metrics       *metrics.Metrics
}

func initDependencies(cfg config.Config) (*dependencies, error) {
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing with in-memory proposal store")
		redisCache = nil
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		elasticClient = nil
	}

	return &dependencies{
		redisCache:    redisCache,
		elasticClient: elasticClient,
		tracer:        tracer,
		metrics:       metrics.NewMetrics(),
	}, nil
}

// buildWorkflow wires repositories and workflow steps into the
// conversation router.
func buildWorkflow(cfg config.Config, db, readOnlyDB *gorm.DB, deps *dependencies) (*workflow.Router, *repositories.OrderRepository, *repositories.CatalogRepository) {
	catalogRepo := repositories.NewCatalogRepository(db, readOnlyDB)
	orderRepo := repositories.NewOrderRepository(db, readOnlyDB)
	customerRepo := repositories.NewCustomerRepository(db, readOnlyDB)
	slotRepo := repositories.NewDeliverySlotRepository(db, readOnlyDB)

	resolver := workflow.NewResolver(catalogRepo)
	placer := workflow.NewPlacer(orderRepo)
	scheduler := workflow.NewScheduler(customerRepo, slotRepo, cfg.Delivery.DefaultPostcode, cfg.Delivery.WindowDays)
	proposalStore := cache.NewProposalStore(deps.redisCache, cfg.Conversation.ProposalTTL)
	extractorClient := extractor.NewClient(cfg.Extractor)

	var indexer workflow.OrderIndexer
	if deps.elasticClient != nil {
		indexer = &workflow.MarkingIndexer{Indexer: deps.elasticClient, Orders: orderRepo}
	}

	workflowRouter := workflow.NewRouter(
		extractorClient,
		resolver,
		placer,
		scheduler,
		proposalStore,
		indexer,
		cfg.Conversation.ProposalTTL,
		deps.metrics,
		deps.tracer,
	)

	return workflowRouter, orderRepo, catalogRepo
}

func initDatabases(cfg config.Config) (*gorm.DB, *gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	readOnlyDB, err := gorm.Open(postgres.Open(cfg.DB.ReadOnlyDSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	// Auto-migrate only the write database
	if err := models.SetupModels(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to run migrations")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get underlying write DB connection")
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	readSqlDB, err := readOnlyDB.DB()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get underlying read-only DB connection")
	}

	// Higher limits for the read side, it serves catalog and slot queries
	readSqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns * 2)
	readSqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns * 2)
	readSqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	return db, readOnlyDB, nil
}
