package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload(NotificationTypeBookingAccepted, []byte(`{"bookingId":"bk_1","bookingTalentId":"bt_9"}`))
	require.NoError(t, err)
	assert.Equal(t, BookingAcceptedPayload{BookingID: "bk_1", BookingTalentID: "bt_9"}, p)

	talent := uuid.New()
	p, err = DecodePayload(NotificationTypeTalentApproved, []byte(`{"talentId":"`+talent.String()+`"}`))
	require.NoError(t, err)
	assert.Equal(t, TalentApprovedPayload{TalentID: talent}, p)

	p, err = DecodePayload(NotificationTypeContractSigned, nil)
	require.NoError(t, err)
	assert.Equal(t, ContractSignedPayload{}, p)

	p, err = DecodePayload(NotificationTypeAnnouncement, []byte("null"))
	require.NoError(t, err)
	assert.Equal(t, AnnouncementPayload{}, p)
}

func TestDecodePayload_Errors(t *testing.T) {
	_, err := DecodePayload("system_alert", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DecodePayload(NotificationTypeContractCreated, []byte(`{"contractId":`))
	assert.Error(t, err)
}

func TestEncodePayload(t *testing.T) {
	b, err := EncodePayload(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	b, err = EncodePayload(BookingRequestPayload{BookingID: "bk_2", BookingTalentID: "bt_3"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bookingId":"bk_2","bookingTalentId":"bt_3"}`, string(b))
}

func TestPayloadTypesMatch(t *testing.T) {
	cases := map[NotificationType]Payload{
		NotificationTypeBookingAccepted: BookingAcceptedPayload{},
		NotificationTypeContractCreated: ContractCreatedPayload{},
		NotificationTypeContractSigned:  ContractSignedPayload{},
		NotificationTypeBookingRequest:  BookingRequestPayload{},
		NotificationTypeTalentApproved:  TalentApprovedPayload{},
		NotificationTypeAnnouncement:    AnnouncementPayload{},
	}
	for typ, p := range cases {
		assert.True(t, typ.Valid())
		assert.Equal(t, typ, p.NotificationType())
	}
	assert.False(t, NotificationType("info").Valid())
}

func TestNotification_JSONShape(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := Notification{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Type:      NotificationTypeBookingAccepted,
		Title:     "Jane Doe accepted booking",
		Message:   "m",
		Data:      BookingAcceptedPayload{BookingID: "bk_1", BookingTalentID: "bt_9"},
		ActionURL: "/admin/contracts?booking=bk_1&talent=bt_9",
		CreatedAt: created,
		UpdatedAt: created,
	}

	b, err := json.Marshal(n)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, key := range []string{"id", "userId", "type", "title", "message", "data", "actionUrl", "read", "createdAt", "updatedAt"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, false, raw["read"])

	var back Notification
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, n.Data, back.Data)
	assert.Equal(t, n.ID, back.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"bogus","data":{}}`), &back))
}

func TestListOptions_Normalize(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ListOptions{}.Normalize().Limit)
	assert.Equal(t, 7, ListOptions{Limit: 7}.Normalize().Limit)

	o := ListOptions{Limit: -5, UnreadOnly: true}.Normalize()
	assert.Equal(t, NoLimit, o.Limit)
	assert.True(t, o.Unbounded())
	assert.True(t, o.UnreadOnly)
}

func TestErrors(t *testing.T) {
	ve := &ValidationError{Fields: map[string]string{"title": "is required", "actionUrl": "must be relative"}}
	assert.Equal(t, "validation failed: actionUrl: must be relative; title: is required", ve.Error())
	assert.True(t, IsValidation(ve))
	assert.False(t, IsPersistence(ve))
	assert.Equal(t, "is required", NewValidationError("userId", "is required").Fields["userId"])

	cause := assert.AnError
	pe := &PersistenceError{Op: "create", Err: cause}
	assert.Equal(t, "notification store create: "+cause.Error(), pe.Error())
	assert.ErrorIs(t, pe, cause)
	assert.True(t, IsPersistence(pe))
}
