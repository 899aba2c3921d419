package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Payload is the deep-link data carried by a notification. Each NotificationType
// has exactly one payload shape.
type Payload interface {
	NotificationType() NotificationType
}

type BookingAcceptedPayload struct {
	BookingID       string `json:"bookingId"`
	BookingTalentID string `json:"bookingTalentId"`
}

func (BookingAcceptedPayload) NotificationType() NotificationType {
	return NotificationTypeBookingAccepted
}

type ContractCreatedPayload struct {
	ContractID string `json:"contractId"`
	BookingID  string `json:"bookingId"`
}

func (ContractCreatedPayload) NotificationType() NotificationType {
	return NotificationTypeContractCreated
}

type ContractSignedPayload struct {
	ContractID string `json:"contractId"`
	BookingID  string `json:"bookingId"`
}

func (ContractSignedPayload) NotificationType() NotificationType {
	return NotificationTypeContractSigned
}

type BookingRequestPayload struct {
	BookingID       string `json:"bookingId"`
	BookingTalentID string `json:"bookingTalentId"`
}

func (BookingRequestPayload) NotificationType() NotificationType {
	return NotificationTypeBookingRequest
}

type TalentApprovedPayload struct {
	TalentID uuid.UUID `json:"talentId"`
}

func (TalentApprovedPayload) NotificationType() NotificationType {
	return NotificationTypeTalentApproved
}

type AnnouncementPayload struct{}

func (AnnouncementPayload) NotificationType() NotificationType {
	return NotificationTypeAnnouncement
}

// DecodePayload parses stored payload JSON into the struct registered for t.
// Empty or null input yields the zero payload for t.
func DecodePayload(t NotificationType, raw []byte) (Payload, error) {
	var p Payload
	switch t {
	case NotificationTypeBookingAccepted:
		p = &BookingAcceptedPayload{}
	case NotificationTypeContractCreated:
		p = &ContractCreatedPayload{}
	case NotificationTypeContractSigned:
		p = &ContractSignedPayload{}
	case NotificationTypeBookingRequest:
		p = &BookingRequestPayload{}
	case NotificationTypeTalentApproved:
		p = &TalentApprovedPayload{}
	case NotificationTypeAnnouncement:
		p = &AnnouncementPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	return deref(p), nil
}

// EncodePayload serializes p for storage. A nil payload encodes as an empty object.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *BookingAcceptedPayload:
		return *v
	case *ContractCreatedPayload:
		return *v
	case *ContractSignedPayload:
		return *v
	case *BookingRequestPayload:
		return *v
	case *TalentApprovedPayload:
		return *v
	case *AnnouncementPayload:
		return *v
	}
	return p
}
