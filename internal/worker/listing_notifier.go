package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwalitptl/practice-api/internal/email"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/messaging"
)

// ListingNotifier emails the dentist when a practice.registered event
// arrives on the broker. Each event is handled by one worker replica.
type ListingNotifier struct {
	broker messaging.Broker
	mailer email.Service
	logger *logger.Logger
}

func NewListingNotifier(broker messaging.Broker, mailer email.Service, log *logger.Logger) *ListingNotifier {
	return &ListingNotifier{
		broker: broker,
		mailer: mailer,
		logger: log,
	}
}

var errBadPayload = errors.New("invalid payload")

// Start blocks until ctx is done. A failed send leaves the event on the
// stream for a later attempt; an undecodable one is dropped.
func (n *ListingNotifier) Start(ctx context.Context) error {
	n.logger.Info("Listening for practice registrations")
	err := n.broker.Consume(ctx, model.EventPracticeRegistered, func(ctx context.Context, payload []byte) error {
		err := n.Handle(ctx, payload)
		if errors.Is(err, errBadPayload) {
			n.logger.Error(err, "Dropping practice registration event")
			return nil
		}
		if err != nil {
			n.logger.Error(err, "Failed to send listing confirmation")
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", model.EventPracticeRegistered, err)
	}
	return nil
}

// Handle sends the confirmation for one practice.registered payload.
func (n *ListingNotifier) Handle(ctx context.Context, payload []byte) error {
	var event model.PracticeRegisteredPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w for %s: %v", errBadPayload, model.EventPracticeRegistered, err)
	}

	if err := n.mailer.SendListingConfirmation(ctx, email.ListingConfirmation{
		To:          event.Email,
		DentistName: event.DentistName,
		ClinicName:  event.ClinicName,
		ClinicSlug:  event.ClinicSlug,
	}); err != nil {
		return err
	}

	n.logger.Info("Listing confirmation sent",
		"clinic_id", event.ClinicID.String(),
		"user_id", event.UserID.String())
	return nil
}
