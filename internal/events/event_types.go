package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/booking-system/user-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated           EventType = "USER_CREATED"
	EventUserUpdated           EventType = "USER_UPDATED"
	EventUserStatusChanged     EventType = "USER_STATUS_CHANGED"
	EventUserDeleted           EventType = "USER_DELETED"
	EventUserPasswordChanged   EventType = "USER_PASSWORD_CHANGED"
	EventNotificationRequested EventType = "NOTIFICATION_REQUESTED"
)

// Topics events are published to.
const (
	TopicUserCreated           = "user.created"
	TopicUserUpdated           = "user.updated"
	TopicUserDeleted           = "user.deleted"
	TopicUserPasswordChanged   = "user.password.changed"
	TopicNotificationRequested = "notification.requested"
)

const (
	DefaultServiceID = "user-service"
	SchemaVersion    = "1.0"
)

// NotificationType selects the delivery channel for user-facing messages.
type NotificationType string

const (
	NotificationEmail NotificationType = "EMAIL"
	NotificationSMS   NotificationType = "SMS"
	NotificationPush  NotificationType = "PUSH"
)

// Payload is implemented by every event variant.
type Payload interface {
	EventType() EventType
	Topic() string
	PartitionKey() string
}

// Event is an immutable lifecycle fact: a common envelope plus one payload variant.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	ServiceID string
	Version   string
	Payload   Payload
}

// New wraps payload in a fresh envelope.
func New(serviceID string, payload Payload) Event {
	if serviceID == "" {
		serviceID = DefaultServiceID
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      payload.EventType(),
		Timestamp: time.Now().UTC(),
		ServiceID: serviceID,
		Version:   SchemaVersion,
		Payload:   payload,
	}
}

// Topic returns the topic the event belongs on.
func (e Event) Topic() string {
	return e.Payload.Topic()
}

// Key returns the partition key.
func (e Event) Key() string {
	return e.Payload.PartitionKey()
}

type envelope struct {
	EventID   string    `json:"eventId"`
	EventType EventType `json:"eventType"`
	Timestamp int64     `json:"timestamp"`
	ServiceID string    `json:"serviceId"`
	Version   string    `json:"version"`
}

// MarshalJSON flattens payload fields next to the envelope fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %s has no payload", e.ID)
	}
	head, err := json.Marshal(envelope{
		EventID:   e.ID,
		EventType: e.Type,
		Timestamp: e.Timestamp.UnixMilli(),
		ServiceID: e.ServiceID,
		Version:   e.Version,
	})
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(head, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// Decode restores an event and its payload variant from the wire format.
func Decode(data []byte) (Event, error) {
	var head envelope
	if err := json.Unmarshal(data, &head); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}

	var (
		payload Payload
		err     error
	)
	switch head.EventType {
	case EventUserCreated:
		payload, err = decodePayload[UserCreated](data)
	case EventUserUpdated:
		payload, err = decodePayload[UserUpdated](data)
	case EventUserStatusChanged:
		payload, err = decodePayload[UserStatusChanged](data)
	case EventUserDeleted:
		payload, err = decodePayload[UserDeleted](data)
	case EventUserPasswordChanged:
		payload, err = decodePayload[UserPasswordChanged](data)
	case EventNotificationRequested:
		payload, err = decodePayload[NotificationRequested](data)
	default:
		return Event{}, fmt.Errorf("unknown event type %q", head.EventType)
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", head.EventType, err)
	}

	return Event{
		ID:        head.EventID,
		Type:      head.EventType,
		Timestamp: time.UnixMilli(head.Timestamp).UTC(),
		ServiceID: head.ServiceID,
		Version:   head.Version,
		Payload:   payload,
	}, nil
}

func decodePayload[T Payload](data []byte) (Payload, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// UserCreated payload.
type UserCreated struct {
	UserID      string            `json:"userId"`
	Email       string            `json:"email"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName"`
	PhoneNumber string            `json:"phoneNumber,omitempty"`
	Status      domain.UserStatus `json:"status"`
}

func (UserCreated) EventType() EventType   { return EventUserCreated }
func (UserCreated) Topic() string          { return TopicUserCreated }
func (p UserCreated) PartitionKey() string { return p.UserID }

// UserUpdated payload. Both maps are keyed by API field name.
type UserUpdated struct {
	UserID         string         `json:"userId"`
	UpdatedFields  map[string]any `json:"updatedFields"`
	PreviousValues map[string]any `json:"previousValues"`
}

func (UserUpdated) EventType() EventType   { return EventUserUpdated }
func (UserUpdated) Topic() string          { return TopicUserUpdated }
func (p UserUpdated) PartitionKey() string { return p.UserID }

// UserStatusChanged payload.
type UserStatusChanged struct {
	UserID         string            `json:"userId"`
	PreviousStatus domain.UserStatus `json:"previousStatus"`
	NewStatus      domain.UserStatus `json:"newStatus"`
	ChangedBy      string            `json:"changedBy"`
	Reason         string            `json:"reason,omitempty"`
}

func (UserStatusChanged) EventType() EventType   { return EventUserStatusChanged }
func (UserStatusChanged) Topic() string          { return TopicUserUpdated }
func (p UserStatusChanged) PartitionKey() string { return p.UserID }

// UserDeleted payload.
type UserDeleted struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	DeletedBy string `json:"deletedBy"`
	Reason    string `json:"reason,omitempty"`
}

func (UserDeleted) EventType() EventType   { return EventUserDeleted }
func (UserDeleted) Topic() string          { return TopicUserDeleted }
func (p UserDeleted) PartitionKey() string { return p.UserID }

// UserPasswordChanged payload.
type UserPasswordChanged struct {
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	ChangedBy domain.Role `json:"changedBy"`
	ActorID   string      `json:"actorId,omitempty"`
}

func (UserPasswordChanged) EventType() EventType   { return EventUserPasswordChanged }
func (UserPasswordChanged) Topic() string          { return TopicUserPasswordChanged }
func (p UserPasswordChanged) PartitionKey() string { return p.UserID }

// NotificationRequested asks downstream channels to contact a user.
type NotificationRequested struct {
	UserID           string           `json:"userId"`
	NotificationType NotificationType `json:"notificationType"`
	Subject          string           `json:"subject"`
	Message          string           `json:"message"`
	TriggeredBy      EventType        `json:"triggeredBy"`
}

func (NotificationRequested) EventType() EventType   { return EventNotificationRequested }
func (NotificationRequested) Topic() string          { return TopicNotificationRequested }
func (p NotificationRequested) PartitionKey() string { return p.UserID }
