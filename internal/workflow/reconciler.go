package workflow

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/grocer/services/assistant/internal/metrics"
	"example.com/grocer/services/assistant/internal/models"
)

// UnindexedOrderStore is the reconciler's view of order persistence.
type UnindexedOrderStore interface {
	GetUnindexed(ctx context.Context, limit int) ([]models.Order, error)
	MarkIndexed(ctx context.Context, orderID string) error
}

// Reconciler re-indexes orders whose synchronous indexing attempt was
// missed, so the search index eventually converges with the database.
type Reconciler struct {
	orders  UnindexedOrderStore
	indexer OrderIndexer
	metrics *metrics.Metrics
	batch   int
}

// NewReconciler creates a new order index reconciler
func NewReconciler(orders UnindexedOrderStore, indexer OrderIndexer, metricsCollector *metrics.Metrics) *Reconciler {
	return &Reconciler{
		orders:  orders,
		indexer: indexer,
		metrics: metricsCollector,
		batch:   100,
	}
}

// MarkingIndexer decorates an OrderIndexer so that a successful index
// also flips the order's indexed flag, keeping it out of future
// reconciliation batches.
type MarkingIndexer struct {
	Indexer OrderIndexer
	Orders  UnindexedOrderStore
}

func (m *MarkingIndexer) IndexOrder(ctx context.Context, order *models.Order) error {
	if err := m.Indexer.IndexOrder(ctx, order); err != nil {
		return err
	}
	if err := m.Orders.MarkIndexed(ctx, order.OrderID); err != nil {
		log.Warn().Err(err).Str("order_id", order.OrderID).Msg("Order indexed but flag update failed")
	}
	return nil
}

// ReconcileOrders indexes one batch of unindexed orders. Per-order
// failures are logged and left unindexed for the next run.
func (r *Reconciler) ReconcileOrders(ctx context.Context) error {
	orders, err := r.orders.GetUnindexed(ctx, r.batch)
	if err != nil {
		return errors.Wrap(err, "failed to fetch unindexed orders")
	}

	if len(orders) == 0 {
		return nil
	}

	log.Info().Int("count", len(orders)).Msg("Reconciling unindexed orders")

	for i := range orders {
		order := &orders[i]
		if err := r.indexer.IndexOrder(ctx, order); err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("Failed to index order during reconciliation")
			r.metrics.IncrementCounter("reconcile_index_failures")
			continue
		}
		if err := r.orders.MarkIndexed(ctx, order.OrderID); err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("Failed to mark order as indexed")
			continue
		}
		r.metrics.IncrementCounter("orders_reconciled")
	}

	return nil
}
