package workflow

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/grocer/services/assistant/internal/models"
)

// totalTolerance is the allowed gap between a submitted total and the
// sum of line subtotals: one cent, padded for float rounding.
const totalTolerance = 0.01 + 1e-9

// OrderStore is the placer's view of order persistence.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
}

// Placer persists a confirmed option selection as an order.
type Placer struct {
	orders OrderStore
	now    func() time.Time
}

// NewPlacer creates a new order placer
func NewPlacer(orders OrderStore) *Placer {
	return &Placer{
		orders: orders,
		now:    time.Now,
	}
}

// PlaceOrder validates the submitted total against the line subtotals,
// generates an order id and persists the order with status PENDING. A
// persistence failure is returned as a PersistenceError and never turns
// into a fabricated confirmation.
func (p *Placer) PlaceOrder(ctx context.Context, customerID string, entries []models.OptionEntry, total float64) (*models.Order, error) {
	computed := sumEntries(entries)
	if math.Abs(total-computed) > totalTolerance {
		return nil, &TotalMismatchError{Submitted: total, Computed: computed}
	}

	createdAt := p.now().UTC()
	order := &models.Order{
		OrderID:     newOrderID(createdAt),
		CustomerID:  customerID,
		Status:      models.OrderPending,
		TotalAmount: total,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	for _, e := range entries {
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.OrderID,
			ProductID: e.ProductID,
			Name:      e.Name,
			Category:  e.Category,
			Unit:      e.Unit,
			Quantity:  e.Quantity,
			UnitPrice: e.UnitPrice,
			Subtotal:  e.Subtotal,
		})
	}

	if err := p.orders.Create(ctx, order); err != nil {
		return nil, &PersistenceError{Op: "place_order", Err: err}
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("customer_id", customerID).
		Float64("total", total).
		Int("items", len(order.Items)).
		Msg("Order placed")

	return order, nil
}

// newOrderID builds an order id of the form ORD-<yyyymmddhhmmss>-<8 hex>.
// The random suffix avoids same-second collisions; the order store's
// primary-key constraint is the uniqueness backstop.
func newOrderID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "ORD-" + t.Format("20060102150405") + "-" + suffix
}
