package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/saransh1220/talentbook/internal/modules/notification/application"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
)

// EventUserUpserted carries a domain.User from the identity service.
const EventUserUpserted = "user_upserted"

var (
	ErrMalformedEnvelope = errors.New("malformed workflow event")
	ErrUnknownEvent      = errors.New("unknown workflow event")
)

// Envelope is the wire format of the workflow event topic.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Notifier is satisfied by application.BestEffort.
type Notifier interface {
	BookingAccepted(ctx context.Context, e application.BookingAcceptedEvent) application.Delivered
	ContractCreated(ctx context.Context, e application.ContractCreatedEvent) application.Delivered
	ContractSigned(ctx context.Context, e application.ContractSignedEvent) application.Delivered
	BookingRequested(ctx context.Context, e application.BookingRequestedEvent) application.Delivered
	TalentApproved(ctx context.Context, e application.TalentApprovedEvent) application.Delivered
}

// UserDirectory is satisfied by application.NotificationService.
type UserDirectory interface {
	SyncUser(ctx context.Context, u domain.User) error
}

// Dispatcher routes workflow events to the matching trigger. Trigger failures
// are handled by the Notifier; undecodable input and failed user syncs are
// returned as errors.
type Dispatcher struct {
	notifier Notifier
	users    UserDirectory
}

func NewDispatcher(n Notifier, users UserDirectory) *Dispatcher {
	return &Dispatcher{notifier: n, users: users}
}

func (d *Dispatcher) Handle(ctx context.Context, _, value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Event == "" || len(env.Payload) == 0 {
		return fmt.Errorf("%w: event and payload are required", ErrMalformedEnvelope)
	}

	if env.Event == EventUserUpserted {
		var u domain.User
		if err := json.Unmarshal(env.Payload, &u); err != nil {
			return fmt.Errorf("%w: %s payload: %v", ErrMalformedEnvelope, env.Event, err)
		}
		return d.users.SyncUser(ctx, u)
	}

	switch domain.NotificationType(env.Event) {
	case domain.NotificationTypeBookingAccepted:
		return dispatch(ctx, env, d.notifier.BookingAccepted)
	case domain.NotificationTypeContractCreated:
		return dispatch(ctx, env, d.notifier.ContractCreated)
	case domain.NotificationTypeContractSigned:
		return dispatch(ctx, env, d.notifier.ContractSigned)
	case domain.NotificationTypeBookingRequest:
		return dispatch(ctx, env, d.notifier.BookingRequested)
	case domain.NotificationTypeTalentApproved:
		return dispatch(ctx, env, d.notifier.TalentApproved)
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

func dispatch[E any](ctx context.Context, env Envelope, fire func(context.Context, E) application.Delivered) error {
	var e E
	if err := json.Unmarshal(env.Payload, &e); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedEnvelope, env.Event, err)
	}
	fire(ctx, e)
	return nil
}
