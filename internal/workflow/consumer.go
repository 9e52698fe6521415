package workflow

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/grocer/services/assistant/internal/models"
)

// ProcessConversationMessage handles one conversation event from the
// queue. Malformed payloads and business rejections are logged and
// completed rather than redelivered, since retrying cannot fix them;
// only infrastructure failures propagate so the message is abandoned.
func (r *Router) ProcessConversationMessage(ctx context.Context, msg *azservicebus.ReceivedMessage) error {
	var req models.ConversationRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Malformed conversation event, dropping")
		r.metrics.IncrementCounter("events_malformed")
		return nil
	}

	result, err := r.HandleTurn(ctx, &req)
	if err != nil {
		if isBusinessRejection(err) {
			log.Warn().Err(err).
				Str("message_id", msg.MessageID).
				Str("customer_id", req.CustomerID).
				Msg("Conversation event rejected")
			r.metrics.IncrementCounter("events_rejected")
			return nil
		}
		return err
	}

	log.Info().
		Str("message_id", msg.MessageID).
		Str("customer_id", req.CustomerID).
		Str("outcome", string(result.Outcome)).
		Msg("Conversation event processed")
	r.metrics.IncrementCounter("events_processed")
	return nil
}

// isBusinessRejection reports whether the error is a terminal rejection
// of the request itself, as opposed to an infrastructure failure worth
// redelivering.
func isBusinessRejection(err error) bool {
	if errors.Is(err, ErrUnrecognizedInput) || errors.Is(err, ErrNoProposal) || errors.Is(err, ErrProposalExpired) {
		return true
	}
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return true
	}
	var mismatchErr *TotalMismatchError
	return errors.As(err, &mismatchErr)
}
