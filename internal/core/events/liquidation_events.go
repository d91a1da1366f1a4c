package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSignedIn  = "auth.signed_in"
	EventTypeSignedOut = "auth.signed_out"

	EventTypeLiquidationSaved         = "liquidation.saved"
	EventTypeLiquidationStatusChanged = "liquidation.status_changed"
	EventTypeLiquidationsDeleted      = "liquidation.deleted"
	EventTypeReceiptUploaded          = "receipt.uploaded"
)

// SessionEvent is emitted by the identity service whenever a session starts
// or ends.
type SessionEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func NewSessionEvent(eventType, userID, email, fullName string) SessionEvent {
	return SessionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"email":   email,
			},
		},
		UserID:   userID,
		Email:    email,
		FullName: fullName,
	}
}

type LiquidationStatusChangedEvent struct {
	BaseEvent
	RequestIDs []string `json:"request_ids"`
	Status     string   `json:"status"`
	ChangedBy  string   `json:"changed_by"`
}

func NewLiquidationStatusChangedEvent(ids []string, status, changedBy string) LiquidationStatusChangedEvent {
	return LiquidationStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeLiquidationStatusChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_ids": ids,
				"status":      status,
				"changed_by":  changedBy,
			},
		},
		RequestIDs: ids,
		Status:     status,
		ChangedBy:  changedBy,
	}
}

type LiquidationSavedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	Created   bool   `json:"created"`
}

func NewLiquidationSavedEvent(requestID, userID string, created bool) LiquidationSavedEvent {
	return LiquidationSavedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeLiquidationSaved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id": requestID,
				"user_id":    userID,
				"created":    created,
			},
		},
		RequestID: requestID,
		UserID:    userID,
		Created:   created,
	}
}

func NewLiquidationsDeletedEvent(ids []string, deletedBy string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventTypeLiquidationsDeleted,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"request_ids": ids,
			"deleted_by":  deletedBy,
		},
	}
}

type ReceiptUploadedEvent struct {
	BaseEvent
	ItemKey string `json:"item_key"`
	URL     string `json:"url"`
}

func NewReceiptUploadedEvent(itemKey, url string) ReceiptUploadedEvent {
	return ReceiptUploadedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeReceiptUploaded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"item_key": itemKey,
				"url":      url,
			},
		},
		ItemKey: itemKey,
		URL:     url,
	}
}
