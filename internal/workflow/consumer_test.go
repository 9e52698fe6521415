package workflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/grocer/services/assistant/internal/models"
)

func eventMessage(t *testing.T, req *models.ConversationRequest) *azservicebus.ReceivedMessage {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return &azservicebus.ReceivedMessage{MessageID: "msg-1", Body: body}
}

func TestProcessConversationMessageCompletesOnSuccess(t *testing.T) {
	f := newRouterFixture(t)

	f.catalog.On("SearchByNames", mock.Anything, mock.Anything).Return([]models.Product{
		{ProductID: "P1", Name: "Whole Milk", Category: "dairy", Price: 1.20, Stock: 10},
	}, nil)
	f.proposals.On("Put", mock.Anything, mock.Anything).Return(nil)

	msg := eventMessage(t, &models.ConversationRequest{
		CustomerID: "CUST-1",
		Items:      []models.RequestedItem{{Name: "milk", Quantity: 1}},
	})

	require.NoError(t, f.router.ProcessConversationMessage(context.Background(), msg))
}

func TestProcessConversationMessageDropsMalformedPayload(t *testing.T) {
	f := newRouterFixture(t)

	msg := &azservicebus.ReceivedMessage{MessageID: "msg-1", Body: []byte("{not json")}

	// Malformed events are dropped, not redelivered
	require.NoError(t, f.router.ProcessConversationMessage(context.Background(), msg))
}

func TestProcessConversationMessageDropsBusinessRejections(t *testing.T) {
	f := newRouterFixture(t)

	f.proposals.On("Get", mock.Anything, "CUST-1").Return(nil, nil)

	msg := eventMessage(t, &models.ConversationRequest{
		CustomerID:   "CUST-1",
		Confirmation: "yes",
	})

	// Confirming without a proposal cannot be fixed by retrying
	require.NoError(t, f.router.ProcessConversationMessage(context.Background(), msg))
}

func TestProcessConversationMessageAbandonsOnInfrastructureFailure(t *testing.T) {
	f := newRouterFixture(t)

	stale := pendingProposalFixture(routerNow.Add(-time.Minute))
	f.proposals.On("Get", mock.Anything, "CUST-1").Return(stale, nil)
	f.proposals.On("Delete", mock.Anything, "CUST-1").Return(nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(context.DeadlineExceeded)

	msg := eventMessage(t, &models.ConversationRequest{
		CustomerID:   "CUST-1",
		Confirmation: "yes",
	})

	// A store failure propagates so the message is redelivered
	require.Error(t, f.router.ProcessConversationMessage(context.Background(), msg))
}
