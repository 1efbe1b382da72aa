package comms

import (
	"encoding/json"
	"fmt"
)

// Event discriminator values carried in the `_et` field.
const (
	eventTagLoginSuccessful   = "login_successful"
	eventTagRoomParticipation = "room_participation"
	eventTagUserMessage       = "user_message"
	eventTagChatHistory       = "chat_history"
)

// RoomParticipationStatus is a user's new status in a room.
type RoomParticipationStatus string

const (
	ParticipationJoined RoomParticipationStatus = "joined"
	ParticipationLeft   RoomParticipationStatus = "left"
)

// RoomDetail describes one room in the login catalog.
type RoomDetail struct {
	// Name is the slug of the room.
	Name string `json:"n"`
	// Description is a short human-readable summary.
	Description string `json:"d"`
}

// LoginSuccessfulEvent welcomes a freshly connected session with its
// server-assigned identity and the room catalog.
type LoginSuccessfulEvent struct {
	SessionID string       `json:"sid"`
	UserID    string       `json:"u"`
	Rooms     []RoomDetail `json:"rs"`
}

// RoomParticipationEvent reports a user joining or leaving a room.
type RoomParticipationEvent struct {
	Room   string                  `json:"r"`
	UserID string                  `json:"u"`
	Status RoomParticipationStatus `json:"s"`
}

// UserMessageEvent carries one chat message sent to a room.
type UserMessageEvent struct {
	Room    string `json:"r"`
	UserID  string `json:"u"`
	Content string `json:"c"`
}

// HistoryMessage is one entry of a room's recent-message buffer.
type HistoryMessage struct {
	UserID  string `json:"u"`
	Content string `json:"c"`
}

// ChatHistoryEvent replays a room's bounded recent history, oldest
// message first.
type ChatHistoryEvent struct {
	Room     string           `json:"r"`
	Messages []HistoryMessage `json:"ms"`
}

// Event is one of the typed messages delivered to clients. Events are
// plain values; each subscriber receives its own copy.
type Event interface {
	eventTag() string
}

func (LoginSuccessfulEvent) eventTag() string   { return eventTagLoginSuccessful }
func (RoomParticipationEvent) eventTag() string { return eventTagRoomParticipation }
func (UserMessageEvent) eventTag() string       { return eventTagUserMessage }
func (ChatHistoryEvent) eventTag() string       { return eventTagChatHistory }

// MarshalEvent encodes an event as a flat JSON object with the `_et`
// discriminator first.
func MarshalEvent(ev Event) ([]byte, error) {
	switch ev := ev.(type) {
	case LoginSuccessfulEvent:
		return json.Marshal(struct {
			Tag string `json:"_et"`
			LoginSuccessfulEvent
		}{ev.eventTag(), ev})
	case RoomParticipationEvent:
		return json.Marshal(struct {
			Tag string `json:"_et"`
			RoomParticipationEvent
		}{ev.eventTag(), ev})
	case UserMessageEvent:
		return json.Marshal(struct {
			Tag string `json:"_et"`
			UserMessageEvent
		}{ev.eventTag(), ev})
	case ChatHistoryEvent:
		return json.Marshal(struct {
			Tag string `json:"_et"`
			ChatHistoryEvent
		}{ev.eventTag(), ev})
	default:
		return nil, fmt.Errorf("unsupported event type %T", ev)
	}
}

// UnmarshalEvent decodes a flat JSON object into its typed event.
func UnmarshalEvent(data []byte) (Event, error) {
	var probe struct {
		Tag string `json:"_et"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch probe.Tag {
	case eventTagLoginSuccessful:
		var ev LoginSuccessfulEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", probe.Tag, err)
		}
		return ev, nil
	case eventTagRoomParticipation:
		var ev RoomParticipationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", probe.Tag, err)
		}
		return ev, nil
	case eventTagUserMessage:
		var ev UserMessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", probe.Tag, err)
		}
		return ev, nil
	case eventTagChatHistory:
		var ev ChatHistoryEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", probe.Tag, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event tag %q", probe.Tag)
	}
}
