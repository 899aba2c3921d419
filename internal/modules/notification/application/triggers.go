package application

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
	"github.com/saransh1220/talentbook/internal/shared/validation"
)

// Workflow events. JSON tags double as the wire shape of the event stream payloads.

type BookingAcceptedEvent struct {
	AdminID         uuid.UUID `json:"adminId" validate:"required"`
	BookingID       string    `json:"bookingId" validate:"required"`
	BookingTalentID string    `json:"bookingTalentId" validate:"required"`
	BookingTitle    string    `json:"bookingTitle" validate:"required"`
	TalentName      string    `json:"talentName" validate:"required"`
}

type ContractCreatedEvent struct {
	TalentID     uuid.UUID `json:"talentId" validate:"required"`
	ContractID   string    `json:"contractId" validate:"required"`
	BookingID    string    `json:"bookingId" validate:"required"`
	BookingTitle string    `json:"bookingTitle" validate:"required"`
}

type ContractSignedEvent struct {
	AdminID      uuid.UUID `json:"adminId" validate:"required"`
	ContractID   string    `json:"contractId" validate:"required"`
	BookingID    string    `json:"bookingId" validate:"required"`
	BookingTitle string    `json:"bookingTitle" validate:"required"`
	TalentName   string    `json:"talentName" validate:"required"`
}

type BookingRequestedEvent struct {
	TalentID        uuid.UUID `json:"talentId" validate:"required"`
	BookingID       string    `json:"bookingId" validate:"required"`
	BookingTalentID string    `json:"bookingTalentId" validate:"required"`
	BookingTitle    string    `json:"bookingTitle" validate:"required"`
	RequesterName   string    `json:"requesterName" validate:"required"`
}

type TalentApprovedEvent struct {
	TalentID   uuid.UUID `json:"talentId" validate:"required"`
	TalentName string    `json:"talentName" validate:"required"`
}

type Announcement struct {
	RecipientIDs []uuid.UUID `json:"recipientIds" validate:"required,min=1,max=1000,dive,required"`
	Title        string      `json:"title" validate:"required,max=120"`
	Message      string      `json:"message" validate:"required,max=1000"`
	ActionURL    string      `json:"actionUrl" validate:"required,relpath"`
}

// Creator is the write side of NotificationService used by triggers.
type Creator interface {
	Create(ctx context.Context, n domain.Notification) (*domain.Notification, error)
	CreateMany(ctx context.Context, ns []domain.Notification) ([]*domain.Notification, error)
}

// Triggers turns workflow events into exactly one notification each.
type Triggers struct {
	store    Creator
	validate *validation.Validator
}

func NewTriggers(store Creator) *Triggers {
	return &Triggers{store: store, validate: validation.New()}
}

func (t *Triggers) BookingAccepted(ctx context.Context, e BookingAcceptedEvent) (*domain.Notification, error) {
	if err := t.check(e); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("booking", e.BookingID)
	q.Set("talent", e.BookingTalentID)

	return t.store.Create(ctx, domain.Notification{
		UserID:    e.AdminID,
		Type:      domain.NotificationTypeBookingAccepted,
		Title:     fmt.Sprintf("%s accepted booking", e.TalentName),
		Message:   fmt.Sprintf("%s has accepted the booking \"%s\". You can now create a contract.", e.TalentName, e.BookingTitle),
		ActionURL: "/admin/contracts?" + q.Encode(),
		Data: domain.BookingAcceptedPayload{
			BookingID:       e.BookingID,
			BookingTalentID: e.BookingTalentID,
		},
	})
}

func (t *Triggers) ContractCreated(ctx context.Context, e ContractCreatedEvent) (*domain.Notification, error) {
	if err := t.check(e); err != nil {
		return nil, err
	}
	return t.store.Create(ctx, domain.Notification{
		UserID:    e.TalentID,
		Type:      domain.NotificationTypeContractCreated,
		Title:     "New contract ready to sign",
		Message:   fmt.Sprintf("A contract for \"%s\" has been created and is waiting for your signature.", e.BookingTitle),
		ActionURL: "/talent/contracts",
		Data: domain.ContractCreatedPayload{
			ContractID: e.ContractID,
			BookingID:  e.BookingID,
		},
	})
}

func (t *Triggers) ContractSigned(ctx context.Context, e ContractSignedEvent) (*domain.Notification, error) {
	if err := t.check(e); err != nil {
		return nil, err
	}
	return t.store.Create(ctx, domain.Notification{
		UserID:    e.AdminID,
		Type:      domain.NotificationTypeContractSigned,
		Title:     fmt.Sprintf("%s signed contract", e.TalentName),
		Message:   fmt.Sprintf("%s has signed the contract for \"%s\".", e.TalentName, e.BookingTitle),
		ActionURL: "/admin/contracts",
		Data: domain.ContractSignedPayload{
			ContractID: e.ContractID,
			BookingID:  e.BookingID,
		},
	})
}

func (t *Triggers) BookingRequested(ctx context.Context, e BookingRequestedEvent) (*domain.Notification, error) {
	if err := t.check(e); err != nil {
		return nil, err
	}
	return t.store.Create(ctx, domain.Notification{
		UserID:    e.TalentID,
		Type:      domain.NotificationTypeBookingRequest,
		Title:     "New booking request",
		Message:   fmt.Sprintf("%s has requested you for \"%s\".", e.RequesterName, e.BookingTitle),
		ActionURL: "/talent/bookings",
		Data: domain.BookingRequestPayload{
			BookingID:       e.BookingID,
			BookingTalentID: e.BookingTalentID,
		},
	})
}

func (t *Triggers) TalentApproved(ctx context.Context, e TalentApprovedEvent) (*domain.Notification, error) {
	if err := t.check(e); err != nil {
		return nil, err
	}
	return t.store.Create(ctx, domain.Notification{
		UserID:    e.TalentID,
		Type:      domain.NotificationTypeTalentApproved,
		Title:     "Your profile has been approved",
		Message:   fmt.Sprintf("Congratulations %s! Your talent profile has been approved and is now visible to clients.", e.TalentName),
		ActionURL: "/talent/dashboard",
		Data:      domain.TalentApprovedPayload{TalentID: e.TalentID},
	})
}

// Announce sends the same message to every recipient through CreateMany.
func (t *Triggers) Announce(ctx context.Context, a Announcement) ([]*domain.Notification, error) {
	if err := t.check(a); err != nil {
		return nil, err
	}
	ns := make([]domain.Notification, 0, len(a.RecipientIDs))
	for _, id := range a.RecipientIDs {
		ns = append(ns, domain.Notification{
			UserID:    id,
			Type:      domain.NotificationTypeAnnouncement,
			Title:     a.Title,
			Message:   a.Message,
			ActionURL: a.ActionURL,
			Data:      domain.AnnouncementPayload{},
		})
	}
	return t.store.CreateMany(ctx, ns)
}

func (t *Triggers) check(e any) error {
	if fields := t.validate.Struct(e); fields != nil {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
