package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSessionEstablished = "session.established"
	EventTypeSessionEnded       = "session.ended"
)

// SessionEstablishedEvent fires after a successful login or restore.
type SessionEstablishedEvent struct {
	BaseEvent
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	DisplayName       string `json:"display_name"`
	Role              string `json:"role"`
	PreferredLanguage string `json:"preferred_language"`
	Restored          bool   `json:"restored"`
}

func NewSessionEstablishedEvent(userID, email, displayName, role, language string, restored bool) *SessionEstablishedEvent {
	return &SessionEstablishedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionEstablished,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":  userID,
				"email":    email,
				"role":     role,
				"restored": restored,
			},
		},
		UserID:            userID,
		Email:             email,
		DisplayName:       displayName,
		Role:              role,
		PreferredLanguage: language,
		Restored:          restored,
	}
}

// SessionEndedEvent fires when a signed-in user logs out.
type SessionEndedEvent struct {
	BaseEvent
	UserID string `json:"user_id,omitempty"`
	Reason string `json:"reason"`
}

func NewSessionEndedEvent(userID, reason string) *SessionEndedEvent {
	return &SessionEndedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionEnded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"reason":  reason,
			},
		},
		UserID: userID,
		Reason: reason,
	}
}
