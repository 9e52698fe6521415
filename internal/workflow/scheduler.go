package workflow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/grocer/services/assistant/internal/models"
	"example.com/grocer/services/assistant/internal/repositories"
)

// CustomerDirectory resolves a customer to a delivery postcode.
type CustomerDirectory interface {
	GetPostcode(ctx context.Context, customerID string) (string, error)
}

// SlotStore queries delivery slots.
type SlotStore interface {
	EarliestAvailable(ctx context.Context, postcode string, from, to time.Time) (*models.DeliverySlot, error)
}

// Scheduler resolves a customer's service region and finds the earliest
// open delivery slot for it.
type Scheduler struct {
	customers       CustomerDirectory
	slots           SlotStore
	defaultPostcode string
	windowDays      int
	now             func() time.Time
}

// NewScheduler creates a new delivery scheduler
func NewScheduler(customers CustomerDirectory, slots SlotStore, defaultPostcode string, windowDays int) *Scheduler {
	return &Scheduler{
		customers:       customers,
		slots:           slots,
		defaultPostcode: defaultPostcode,
		windowDays:      windowDays,
		now:             time.Now,
	}
}

// Schedule finds the earliest available slot for the customer's postcode
// within the configured window. An unknown customer falls back to the
// default postcode; no slot in the window returns (nil, nil). The order
// this runs for has already been placed, so nothing here may fail the
// confirmation as a whole.
func (s *Scheduler) Schedule(ctx context.Context, customerID string) (*models.DeliverySlot, error) {
	postcode, err := s.customers.GetPostcode(ctx, customerID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, errors.Wrap(err, "failed to resolve customer postcode")
		}
		log.Warn().
			Str("customer_id", customerID).
			Str("default_postcode", s.defaultPostcode).
			Msg("Customer postcode not found, using default region")
		postcode = s.defaultPostcode
	}

	from := s.now()
	to := from.AddDate(0, 0, s.windowDays)

	slot, err := s.slots.EarliestAvailable(ctx, postcode, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query delivery slots")
	}

	if slot == nil {
		log.Info().
			Str("customer_id", customerID).
			Str("postcode", postcode).
			Msg("No delivery slot available in window")
		return nil, nil
	}

	log.Info().
		Str("customer_id", customerID).
		Str("slot_id", slot.SlotID).
		Str("slot_date", slot.SlotDate).
		Str("start_time", slot.StartTime).
		Msg("Earliest delivery slot found")

	return slot, nil
}
