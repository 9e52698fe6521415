package models

import "time"

// RequestKind tags the inbound conversation request union
type RequestKind string

const (
	KindImage        RequestKind = "image"
	KindTextList     RequestKind = "text_list"
	KindConfirmation RequestKind = "confirmation"
)

// ImageRef points at a stored grocery-list image.
type ImageRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// RequestedItem is one line as the customer wrote it. The name is kept
// verbatim; catalog matching happens later in the resolver.
type RequestedItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
}

// ConversationRequest is a single inbound turn. Exactly one of Image,
// Items or Confirmation must be set; the router classifies the request
// and rejects anything ambiguous.
type ConversationRequest struct {
	CustomerID    string          `json:"customer_id"`
	Image         *ImageRef       `json:"image,omitempty"`
	Items         []RequestedItem `json:"items,omitempty"`
	Confirmation  string          `json:"confirmation,omitempty"`
	PriorProposal *OrderProposal  `json:"prior_proposal,omitempty"`
}

// LineStatus classifies how a requested item resolved against the catalog
type LineStatus string

const (
	LineAvailable  LineStatus = "AVAILABLE"
	LinePartial    LineStatus = "PARTIAL"
	LineOutOfStock LineStatus = "OUT_OF_STOCK"
	LineNotFound   LineStatus = "NOT_FOUND"
)

// ResolvedLine is the resolver's verdict for one requested item.
// Substitutes are suggestions only; they are never merged into the line
// without an explicit customer confirmation.
type ResolvedLine struct {
	RequestedName  string     `json:"requested_name"`
	RequestedQty   int        `json:"requested_quantity"`
	Status         LineStatus `json:"status"`
	Product        *Product   `json:"product,omitempty"`
	FulfillableQty int        `json:"fulfillable_quantity"`
	Substitutes    []Product  `json:"substitutes,omitempty"`
}

// OptionEntry is one line of a proposal option.
type OptionEntry struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Unit      string  `json:"unit"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// OptionSet is one selectable alternative in a proposal.
type OptionSet struct {
	Number  int           `json:"number"`
	Label   string        `json:"label"`
	Entries []OptionEntry `json:"entries"`
	Total   float64       `json:"total"`
}

// OrderProposal is the ephemeral result of resolving a grocery request.
// It lives in the conversation context until confirmed or expired and is
// never persisted as-is.
type OrderProposal struct {
	CustomerID string         `json:"customer_id"`
	Lines      []ResolvedLine `json:"lines"`
	Options    []OptionSet    `json:"options"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Option returns the option set with the given number.
func (p *OrderProposal) Option(number int) (*OptionSet, bool) {
	for i := range p.Options {
		if p.Options[i].Number == number {
			return &p.Options[i], true
		}
	}
	return nil, false
}

// TurnOutcome tags the result of a conversation turn
type TurnOutcome string

const (
	OutcomeProposal  TurnOutcome = "proposal"
	OutcomeConfirmed TurnOutcome = "confirmed"
	OutcomeDeclined  TurnOutcome = "declined"
)

// TurnResult is what a conversation turn hands back to the caller. The
// router returns it exactly as the producing step built it.
type TurnResult struct {
	Outcome  TurnOutcome    `json:"outcome"`
	Proposal *OrderProposal `json:"proposal,omitempty"`
	Order    *Order         `json:"order,omitempty"`
	Slot     *DeliverySlot  `json:"slot,omitempty"`
	Message  string         `json:"message"`
}
