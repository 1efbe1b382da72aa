package server

import (
	"fmt"
	"sync"

	"github.com/louisbranch/chatrelay/internal/comms"
)

// maxHistorySize caps each room's recent-message buffer.
const maxHistorySize = 10

// RoomMetadata names and describes a room. Immutable after creation.
type RoomMetadata struct {
	Name        string
	Description string
}

// ChatRoom owns one room's membership registry, broadcast event stream,
// and bounded message history. Rooms are created once at startup and
// live for the process lifetime.
//
// The mutex guards registry and history mutation only; it is never held
// across a publish, so a slow subscriber cannot block room bookkeeping.
// The broadcaster itself serializes publishes, which keeps the event
// order identical for every subscriber.
type ChatRoom struct {
	metadata RoomMetadata
	stream   *broadcaster

	mu       sync.Mutex
	registry *userRegistry
	history  []comms.HistoryMessage
}

// NewChatRoom creates an empty room with the given metadata.
func NewChatRoom(metadata RoomMetadata) *ChatRoom {
	return &ChatRoom{
		metadata: metadata,
		stream:   newBroadcaster(),
		registry: newUserRegistry(),
	}
}

// Metadata returns the room's immutable metadata.
func (r *ChatRoom) Metadata() RoomMetadata {
	return r.metadata
}

// Join subscribes the identity to the room's event stream and registers
// its membership. The subscription is created before any participation
// event is published, so a joiner always observes its own join. Only
// the identity's first join publishes a joined event; re-joining is a
// no-op publish-wise but still returns a fresh subscription.
func (r *ChatRoom) Join(identity SessionAndUserID) (*subscription, UserSessionHandle) {
	sub := r.stream.subscribe()
	handle := UserSessionHandle{Room: r.metadata.Name, Identity: identity}

	r.mu.Lock()
	first := r.registry.insert(handle)
	r.mu.Unlock()

	if first {
		_ = r.stream.publish(comms.RoomParticipationEvent{
			Room:   r.metadata.Name,
			UserID: identity.UserID,
			Status: comms.ParticipationJoined,
		})
	}
	return sub, handle
}

// Leave removes the membership the handle stands for. A left event is
// published only when an entry was actually removed, so leaving twice
// publishes at most once.
func (r *ChatRoom) Leave(handle UserSessionHandle) {
	r.mu.Lock()
	removed := r.registry.remove(handle)
	r.mu.Unlock()

	if removed {
		_ = r.stream.publish(comms.RoomParticipationEvent{
			Room:   r.metadata.Name,
			UserID: handle.Identity.UserID,
			Status: comms.ParticipationLeft,
		})
	}
}

// HandleMessage appends the message to the bounded history, evicting
// the oldest entry at capacity, then broadcasts it to every subscriber.
// The history write is not rolled back when the broadcast fails.
func (r *ChatRoom) HandleMessage(userID, content string) error {
	r.mu.Lock()
	if len(r.history) >= maxHistorySize {
		r.history = r.history[1:]
	}
	r.history = append(r.history, comms.HistoryMessage{UserID: userID, Content: content})
	r.mu.Unlock()

	err := r.stream.publish(comms.UserMessageEvent{
		Room:    r.metadata.Name,
		UserID:  userID,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("broadcast message to room %q: %w", r.metadata.Name, err)
	}
	return nil
}

// History returns a copy of the room's recent messages, oldest first.
func (r *ChatRoom) History() []comms.HistoryMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := make([]comms.HistoryMessage, len(r.history))
	copy(history, r.history)
	return history
}

// UniqueUserIDs returns the distinct user ids currently in the room.
func (r *ChatRoom) UniqueUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.uniqueUserIDs()
}
