package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	// Forward chain
	require.True(t, OrderPending.CanTransitionTo(OrderConfirmed))
	require.True(t, OrderConfirmed.CanTransitionTo(OrderProcessing))
	require.True(t, OrderProcessing.CanTransitionTo(OrderShipped))
	require.True(t, OrderShipped.CanTransitionTo(OrderDelivered))

	// No skipping and no moving backwards
	require.False(t, OrderPending.CanTransitionTo(OrderShipped))
	require.False(t, OrderShipped.CanTransitionTo(OrderConfirmed))
	require.False(t, OrderConfirmed.CanTransitionTo(OrderConfirmed))
}

func TestOrderStatusCancellation(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing, OrderShipped} {
		require.True(t, s.CanTransitionTo(OrderCancelled), string(s))
	}

	// Terminal states stay terminal
	require.False(t, OrderDelivered.CanTransitionTo(OrderCancelled))
	require.False(t, OrderCancelled.CanTransitionTo(OrderPending))
	require.False(t, OrderCancelled.CanTransitionTo(OrderCancelled))
}

func TestOrderStatusValid(t *testing.T) {
	require.True(t, OrderPending.Valid())
	require.False(t, OrderStatus("REFUNDED").Valid())
	require.False(t, OrderPending.CanTransitionTo(OrderStatus("REFUNDED")))
}

func TestDeliverySlotCoversPostcode(t *testing.T) {
	slot := DeliverySlot{PostcodeCoverage: "SW1A, E1 ,N1"}

	require.True(t, slot.CoversPostcode("SW1A"))
	require.True(t, slot.CoversPostcode("E1"))
	require.True(t, slot.CoversPostcode("N1"))
	require.False(t, slot.CoversPostcode("SE1"))
	require.False(t, slot.CoversPostcode("SW1"))
}

func TestProductInStock(t *testing.T) {
	require.True(t, (&Product{Stock: 1}).InStock())
	require.False(t, (&Product{Stock: 0}).InStock())
}

func TestProposalOptionLookup(t *testing.T) {
	p := &OrderProposal{Options: []OptionSet{{Number: 1}, {Number: 2}}}

	opt, ok := p.Option(2)
	require.True(t, ok)
	require.Equal(t, 2, opt.Number)

	_, ok = p.Option(3)
	require.False(t, ok)
}
