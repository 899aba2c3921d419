package application

import (
	"context"

	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
	"github.com/saransh1220/talentbook/internal/shared/logging"
)

// TriggerSet is implemented by Triggers.
type TriggerSet interface {
	BookingAccepted(ctx context.Context, e BookingAcceptedEvent) (*domain.Notification, error)
	ContractCreated(ctx context.Context, e ContractCreatedEvent) (*domain.Notification, error)
	ContractSigned(ctx context.Context, e ContractSignedEvent) (*domain.Notification, error)
	BookingRequested(ctx context.Context, e BookingRequestedEvent) (*domain.Notification, error)
	TalentApproved(ctx context.Context, e TalentApprovedEvent) (*domain.Notification, error)
}

// BestEffort runs triggers alongside a primary state change. A failed
// notification is logged and counted but never reported to the caller, so it
// cannot fail the booking or contract operation that raised it.
type BestEffort struct {
	triggers TriggerSet
	log      logging.Logger
}

func NewBestEffort(triggers TriggerSet, log logging.Logger) *BestEffort {
	return &BestEffort{
		triggers: triggers,
		log:      logging.OrDefault(log).With("component", "notification.triggers"),
	}
}

// Delivered reports whether the trigger produced a notification.
type Delivered bool

func (b *BestEffort) BookingAccepted(ctx context.Context, e BookingAcceptedEvent) Delivered {
	_, err := b.triggers.BookingAccepted(ctx, e)
	return b.report(domain.NotificationTypeBookingAccepted, err,
		"recipient_id", e.AdminID, "booking_id", e.BookingID, "booking_talent_id", e.BookingTalentID)
}

func (b *BestEffort) ContractCreated(ctx context.Context, e ContractCreatedEvent) Delivered {
	_, err := b.triggers.ContractCreated(ctx, e)
	return b.report(domain.NotificationTypeContractCreated, err,
		"recipient_id", e.TalentID, "contract_id", e.ContractID, "booking_id", e.BookingID)
}

func (b *BestEffort) ContractSigned(ctx context.Context, e ContractSignedEvent) Delivered {
	_, err := b.triggers.ContractSigned(ctx, e)
	return b.report(domain.NotificationTypeContractSigned, err,
		"recipient_id", e.AdminID, "contract_id", e.ContractID, "booking_id", e.BookingID)
}

func (b *BestEffort) BookingRequested(ctx context.Context, e BookingRequestedEvent) Delivered {
	_, err := b.triggers.BookingRequested(ctx, e)
	return b.report(domain.NotificationTypeBookingRequest, err,
		"recipient_id", e.TalentID, "booking_id", e.BookingID, "booking_talent_id", e.BookingTalentID)
}

func (b *BestEffort) TalentApproved(ctx context.Context, e TalentApprovedEvent) Delivered {
	_, err := b.triggers.TalentApproved(ctx, e)
	return b.report(domain.NotificationTypeTalentApproved, err, "recipient_id", e.TalentID)
}

func (b *BestEffort) report(t domain.NotificationType, err error, kv ...any) Delivered {
	if err == nil {
		return true
	}
	triggerFailures.WithLabelValues(string(t)).Inc()
	kv = append(kv, "type", string(t), "validation", domain.IsValidation(err), "error", err)
	b.log.Error("notification trigger failed", kv...)
	return false
}
