package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/grocer/services/assistant/config"
	"example.com/grocer/services/assistant/internal/tracing"
)

// MessageHandler processes one received queue message. A non-nil error
// abandons the message back to the queue.
type MessageHandler func(ctx context.Context, msg *azservicebus.ReceivedMessage) error

// AzureServiceBus consumes conversation events from an Azure Service Bus
// queue.
type AzureServiceBus struct {
	client    *azservicebus.Client
	queueName string
	tracer    tracing.Tracer
}

// NewAzureServiceBus creates a new Azure Service Bus consumer
func NewAzureServiceBus(cfg config.AzureConfig, tracer tracing.Tracer) (*AzureServiceBus, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, err
	}

	return &AzureServiceBus{
		client:    client,
		queueName: cfg.QueueName,
		tracer:    tracer,
	}, nil
}

// ProcessMessages consumes the queue in batches until the context is
// cancelled. Handler failures abandon the message for redelivery; the
// loop itself only stops on receiver errors or shutdown.
func (a *AzureServiceBus) ProcessMessages(ctx context.Context, handler MessageHandler) error {
	receiver, err := a.client.NewReceiverForQueue(a.queueName, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := receiver.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error closing Service Bus receiver")
		}
	}()

	log.Info().Str("queue", a.queueName).Msg("Consuming conversation events")

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var sbErr *azservicebus.Error
			if errors.As(err, &sbErr) && sbErr.Code == azservicebus.CodeTimeout {
				time.Sleep(2 * time.Second)
				continue
			}
			return err
		}

		for _, message := range messages {
			a.handleMessage(ctx, receiver, message, handler)
		}
	}
}

func (a *AzureServiceBus) handleMessage(ctx context.Context, receiver *azservicebus.Receiver, message *azservicebus.ReceivedMessage, handler MessageHandler) {
	txn := a.tracer.StartTransaction("conversation-event")
	defer a.tracer.EndTransaction(txn)
	a.tracer.AddAttribute(txn, "message_id", message.MessageID)

	if err := handler(ctx, message); err != nil {
		log.Error().Err(err).Str("message_id", message.MessageID).Msg("Error processing message")
		a.tracer.RecordError(txn, err)

		if err := receiver.AbandonMessage(ctx, message, nil); err != nil {
			log.Error().Err(err).Str("message_id", message.MessageID).Msg("Failed to abandon message")
		}
		return
	}

	if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
		log.Error().Err(err).Str("message_id", message.MessageID).Msg("Failed to complete message")
	}
}

// Close closes the Service Bus client
func (a *AzureServiceBus) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close(context.Background())
}
