package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/grocer/services/assistant/internal/metrics"
	"example.com/grocer/services/assistant/internal/models"
	"example.com/grocer/services/assistant/internal/tracing"
)

// ItemExtractor converts a stored grocery-list image into requested items.
type ItemExtractor interface {
	ExtractItems(ctx context.Context, ref models.ImageRef) ([]models.RequestedItem, error)
}

// ProposalStore holds the pending proposal per customer between the
// proposal turn and the confirmation turn.
type ProposalStore interface {
	Put(ctx context.Context, proposal *models.OrderProposal) error
	Get(ctx context.Context, customerID string) (*models.OrderProposal, error)
	Delete(ctx context.Context, customerID string) error
}

// OrderIndexer records a placed order in the search index. Best effort;
// a missed index is reconciled later by the worker.
type OrderIndexer interface {
	IndexOrder(ctx context.Context, order *models.Order) error
}

// Router classifies inbound conversation turns and drives the workflow:
// image extraction and catalog resolution for new orders, order placement
// and delivery scheduling for confirmations. Step results pass through
// unmodified.
type Router struct {
	extractor   ItemExtractor
	resolver    *Resolver
	placer      *Placer
	scheduler   *Scheduler
	proposals   ProposalStore
	indexer     OrderIndexer
	proposalTTL time.Duration
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
	now         func() time.Time
}

// NewRouter creates a new conversation router
func NewRouter(
	extractor ItemExtractor,
	resolver *Resolver,
	placer *Placer,
	scheduler *Scheduler,
	proposals ProposalStore,
	indexer OrderIndexer,
	proposalTTL time.Duration,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *Router {
	return &Router{
		extractor:   extractor,
		resolver:    resolver,
		placer:      placer,
		scheduler:   scheduler,
		proposals:   proposals,
		indexer:     indexer,
		proposalTTL: proposalTTL,
		metrics:     metricsCollector,
		tracer:      tracer,
		now:         time.Now,
	}
}

// Classify maps an inbound request to exactly one request kind. A
// payload setting zero or more than one of image / items / confirmation
// is ErrUnrecognizedInput; there is no default route.
func Classify(req *models.ConversationRequest) (models.RequestKind, error) {
	if req == nil || req.CustomerID == "" {
		return "", ErrUnrecognizedInput
	}

	kinds := make([]models.RequestKind, 0, 3)
	if req.Image != nil {
		kinds = append(kinds, models.KindImage)
	}
	if len(req.Items) > 0 {
		kinds = append(kinds, models.KindTextList)
	}
	if strings.TrimSpace(req.Confirmation) != "" {
		kinds = append(kinds, models.KindConfirmation)
	}

	if len(kinds) != 1 {
		return "", ErrUnrecognizedInput
	}
	return kinds[0], nil
}

// HandleTurn processes one conversation turn and returns the producing
// step's result verbatim.
func (r *Router) HandleTurn(ctx context.Context, req *models.ConversationRequest) (*models.TurnResult, error) {
	txn := r.tracer.StartTransaction("conversation-turn")
	defer r.tracer.EndTransaction(txn)

	kind, err := Classify(req)
	if err != nil {
		r.metrics.IncrementCounter("turns_unrecognized")
		r.tracer.RecordError(txn, err)
		return nil, err
	}

	r.tracer.AddAttribute(txn, "customer_id", req.CustomerID)
	r.tracer.AddAttribute(txn, "request_kind", string(kind))

	switch kind {
	case models.KindImage:
		span := r.tracer.StartSpan("extract-items", txn)
		items, err := r.extractor.ExtractItems(ctx, *req.Image)
		span.End()
		if err != nil {
			r.metrics.IncrementCounter("extractions_failed")
			r.tracer.RecordError(txn, err)
			return nil, err
		}
		return r.propose(ctx, txn, req.CustomerID, items)

	case models.KindTextList:
		return r.propose(ctx, txn, req.CustomerID, req.Items)

	default:
		return r.confirm(ctx, txn, req)
	}
}

// propose resolves the requested items into a proposal, stores it for the
// confirmation turn and returns it to the caller untouched.
func (r *Router) propose(ctx context.Context, txn *newrelic.Transaction, customerID string, items []models.RequestedItem) (*models.TurnResult, error) {
	span := r.tracer.StartSpan("resolve-catalog", txn)
	proposal, err := r.resolver.Resolve(ctx, customerID, items)
	span.End()
	if err != nil {
		r.metrics.IncrementCounter("resolutions_failed")
		r.tracer.RecordError(txn, err)
		return nil, err
	}

	if err := r.proposals.Put(ctx, proposal); err != nil {
		r.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to store proposal context")
	}

	r.metrics.IncrementCounter("proposals_issued")
	return &models.TurnResult{
		Outcome:  models.OutcomeProposal,
		Proposal: proposal,
		Message:  proposalMessage(proposal),
	}, nil
}

// confirm resolves the pending proposal, interprets the selection and
// runs order placement followed by delivery scheduling.
func (r *Router) confirm(ctx context.Context, txn *newrelic.Transaction, req *models.ConversationRequest) (*models.TurnResult, error) {
	proposal, err := r.pendingProposal(ctx, req)
	if err != nil {
		r.tracer.RecordError(txn, err)
		return nil, err
	}

	selection, err := parseSelection(req.Confirmation)
	if err != nil {
		r.metrics.IncrementCounter("turns_unrecognized")
		r.tracer.RecordError(txn, err)
		return nil, err
	}

	if selection.declined {
		if err := r.proposals.Delete(ctx, req.CustomerID); err != nil {
			log.Warn().Err(err).Str("customer_id", req.CustomerID).Msg("Failed to drop declined proposal")
		}
		r.metrics.IncrementCounter("proposals_declined")
		return &models.TurnResult{
			Outcome: models.OutcomeDeclined,
			Message: "No problem, nothing has been ordered.",
		}, nil
	}

	option, ok := proposal.Option(selection.option)
	if !ok {
		return nil, ErrUnrecognizedInput
	}

	span := r.tracer.StartSpan("place-order", txn)
	order, err := r.placer.PlaceOrder(ctx, req.CustomerID, option.Entries, option.Total)
	span.End()
	if err != nil {
		r.metrics.IncrementCounter("orders_failed")
		r.tracer.RecordError(txn, err)
		return nil, err
	}
	r.metrics.IncrementCounter("orders_placed")

	// The proposal is spent once the order exists.
	if err := r.proposals.Delete(ctx, req.CustomerID); err != nil {
		log.Warn().Err(err).Str("customer_id", req.CustomerID).Msg("Failed to drop confirmed proposal")
	}

	// Index for support search. The order row carries an indexed flag, so
	// a miss here is picked up by the worker's reconciliation job.
	if r.indexer != nil {
		if err := r.indexer.IndexOrder(ctx, order); err != nil {
			log.Warn().Err(err).Str("order_id", order.OrderID).Msg("Failed to index order, reconciliation will retry")
		}
	}

	// Scheduling never blocks or reverses the placed order. A slot query
	// failure degrades to "no slot" alongside the confirmed order.
	span = r.tracer.StartSpan("schedule-delivery", txn)
	slot, err := r.scheduler.Schedule(ctx, req.CustomerID)
	span.End()
	if err != nil {
		log.Error().Err(err).Str("order_id", order.OrderID).Msg("Delivery scheduling failed after order placement")
		r.tracer.RecordError(txn, err)
		slot = nil
	}
	if slot == nil {
		r.metrics.IncrementCounter("slots_missed")
	} else {
		r.metrics.IncrementCounter("slots_assigned")
	}

	return &models.TurnResult{
		Outcome: models.OutcomeConfirmed,
		Order:   order,
		Slot:    slot,
		Message: confirmationMessage(order, slot),
	}, nil
}

// pendingProposal returns the proposal this confirmation refers to: the
// one carried in the request, else the stored one. Either way staleness
// is checked against the TTL.
func (r *Router) pendingProposal(ctx context.Context, req *models.ConversationRequest) (*models.OrderProposal, error) {
	proposal := req.PriorProposal
	if proposal == nil {
		stored, err := r.proposals.Get(ctx, req.CustomerID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load proposal context")
		}
		proposal = stored
	}
	if proposal == nil {
		return nil, ErrNoProposal
	}
	if r.proposalTTL > 0 && r.now().Sub(proposal.CreatedAt) > r.proposalTTL {
		return nil, ErrProposalExpired
	}
	return proposal, nil
}

// selection is the interpreted confirmation text.
type selection struct {
	option   int
	declined bool
}

// parseSelection interprets a confirmation text. Recognized inputs are
// option tokens, affirmatives (which select option 1, the conservative
// choice) and negatives. Anything else is ErrUnrecognizedInput.
func parseSelection(text string) (selection, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimSuffix(normalized, ".")
	normalized = strings.TrimSuffix(normalized, "!")

	switch normalized {
	case "option 1", "option1", "1", "first", "first option":
		return selection{option: 1}, nil
	case "option 2", "option2", "2", "second", "second option":
		return selection{option: 2}, nil
	case "yes", "y", "yep", "yeah", "ok", "okay", "confirm", "sure":
		return selection{option: 1}, nil
	case "no", "n", "nope", "cancel", "decline":
		return selection{declined: true}, nil
	}
	return selection{}, ErrUnrecognizedInput
}

// proposalMessage renders a proposal for the caller-facing text channel.
func proposalMessage(p *models.OrderProposal) string {
	var b strings.Builder
	b.WriteString("Here are your order options:\n")
	for _, opt := range p.Options {
		fmt.Fprintf(&b, "\nOption %d (%s):\n", opt.Number, opt.Label)
		if len(opt.Entries) == 0 {
			b.WriteString("  (no items)\n")
			continue
		}
		for _, e := range opt.Entries {
			fmt.Fprintf(&b, "  %d x %s (%s) @ %.2f = %.2f\n", e.Quantity, e.Name, e.Unit, e.UnitPrice, e.Subtotal)
		}
		fmt.Fprintf(&b, "  Total: %.2f\n", opt.Total)
	}
	b.WriteString("\nReply \"option 1\" or \"option 2\" to confirm, or \"no\" to cancel.")
	return b.String()
}

// confirmationMessage renders the final confirmation, including the
// explicit no-slot case.
func confirmationMessage(order *models.Order, slot *models.DeliverySlot) string {
	msg := fmt.Sprintf("Order %s placed successfully. Total: %.2f.", order.OrderID, order.TotalAmount)
	if slot == nil {
		return msg + " No delivery slot is currently available for your area; we will be in touch to arrange delivery."
	}
	return fmt.Sprintf("%s Earliest delivery: %s from %s to %s.", msg, slot.SlotDate, slot.StartTime, slot.EndTime)
}
