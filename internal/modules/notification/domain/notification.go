package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeBookingAccepted NotificationType = "booking_accepted"
	NotificationTypeContractCreated NotificationType = "contract_created"
	NotificationTypeContractSigned  NotificationType = "contract_signed"
	NotificationTypeBookingRequest  NotificationType = "booking_request"
	NotificationTypeTalentApproved  NotificationType = "talent_approved"
	NotificationTypeAnnouncement    NotificationType = "announcement"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeBookingAccepted,
		NotificationTypeContractCreated,
		NotificationTypeContractSigned,
		NotificationTypeBookingRequest,
		NotificationTypeTalentApproved,
		NotificationTypeAnnouncement:
		return true
	}
	return false
}

// Notification is immutable once stored except for Read and UpdatedAt.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      Payload          `json:"data"`
	ActionURL string           `json:"actionUrl"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// UnmarshalJSON restores the concrete payload type from the notification type.
func (n *Notification) UnmarshalJSON(b []byte) error {
	type alias Notification
	aux := struct {
		*alias
		Data json.RawMessage `json:"data"`
	}{alias: (*alias)(n)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	payload, err := DecodePayload(n.Type, aux.Data)
	if err != nil {
		return err
	}
	n.Data = payload
	return nil
}

const (
	DefaultListLimit = 20
	// NoLimit disables truncation in ListOptions.
	NoLimit = -1
)

type ListOptions struct {
	Limit      int
	UnreadOnly bool
}

// Normalize applies the default limit when none was requested.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit == 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit < 0 {
		o.Limit = NoLimit
	}
	return o
}

// Unbounded reports whether the listing should not be truncated.
func (o ListOptions) Unbounded() bool {
	return o.Limit < 0
}
