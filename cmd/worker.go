package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/grocer/services/assistant/config"
	"example.com/grocer/services/assistant/internal/messaging"
	"example.com/grocer/services/assistant/internal/workflow"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to process conversation events from Azure Service Bus and reconcile the order search index`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	db, readOnlyDB, err := initDatabases(cfg)
	if err != nil {
		return err
	}

	deps, err := initDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.tracer.Close()

	workflowRouter, orderRepo, _ := buildWorkflow(cfg, db, readOnlyDB, deps)

	azureBus, err := messaging.NewAzureServiceBus(cfg.Azure, deps.tracer)
	if err != nil {
		return err
	}
	defer azureBus.Close()

	// Conversation events arriving over the queue instead of HTTP
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Azure Service Bus processor")
		return azureBus.ProcessMessages(ctx, workflowRouter.ProcessConversationMessage)
	})

	// Fallback reconciliation for orders whose synchronous indexing was
	// missed
	g.Go(func() error {
		if deps.elasticClient == nil {
			log.Warn().Msg("Elasticsearch unavailable, index reconciliation disabled")
			<-ctx.Done()
			return nil
		}

		reconciler := workflow.NewReconciler(orderRepo, deps.elasticClient, deps.metrics)

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(5*time.Minute),
			gocron.NewTask(func() {
				if err := reconciler.ReconcileOrders(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reconcile order index")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
