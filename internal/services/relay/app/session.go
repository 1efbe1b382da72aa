package server

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/louisbranch/chatrelay/internal/comms"
)

// ErrNotAMember reports a command that requires a room membership the
// session does not currently hold.
var ErrNotAMember = errors.New("not a member of the room")

// roomSubscription pairs a broadcast subscription with the handle the
// session presents to leave the room.
type roomSubscription struct {
	sub    *subscription
	handle UserSessionHandle
}

// ChatSession multiplexes one connection's membership across rooms. It
// maps each joined room to its active subscription and merges every
// subscription into a single fan-in event stream; the contributing set
// re-arms dynamically as the session joins and leaves rooms.
type ChatSession struct {
	identity SessionAndUserID
	manager  *RoomManager

	mu    sync.Mutex
	rooms map[string]*roomSubscription

	events    chan comms.Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewChatSession creates the per-connection session state.
func NewChatSession(sessionID, userID string, manager *RoomManager) *ChatSession {
	return &ChatSession{
		identity: SessionAndUserID{SessionID: sessionID, UserID: userID},
		manager:  manager,
		rooms:    make(map[string]*roomSubscription),
		events:   make(chan comms.Event),
		done:     make(chan struct{}),
	}
}

// Identity returns the session's identity pair.
func (s *ChatSession) Identity() SessionAndUserID {
	return s.identity
}

// HandleCommand applies one user command. The returned reply, when
// non-nil, is for the issuing session only; room-wide effects arrive
// through Events.
func (s *ChatSession) HandleCommand(cmd comms.Command) (comms.Event, error) {
	switch cmd := cmd.(type) {
	case comms.JoinRoomCommand:
		return nil, s.joinRoom(cmd.Room)
	case comms.LeaveRoomCommand:
		return nil, s.leaveRoom(cmd.Room)
	case comms.SendMessageCommand:
		return nil, s.sendMessage(cmd.Room, cmd.Content)
	case comms.GetHistoryCommand:
		return s.historyReply(cmd.Room)
	case comms.QuitCommand:
		// Quit terminates the driver loop; nothing to do here.
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported command type %T", cmd)
	}
}

// Events exposes the fan-in stream of events from every room the
// session is currently subscribed to, in each room's own publish order.
func (s *ChatSession) Events() <-chan comms.Event {
	return s.events
}

// LeaveAllRooms releases every held subscription and membership.
// Teardown is best-effort: a failing room is logged and the remaining
// rooms are still released.
func (s *ChatSession) LeaveAllRooms() {
	s.mu.Lock()
	held := s.rooms
	s.rooms = make(map[string]*roomSubscription)
	s.mu.Unlock()

	for name, room := range held {
		room.sub.cancel()
		if err := s.manager.LeaveRoom(name, room.handle); err != nil {
			log.Printf("relay: leave room %q during teardown session=%q: %v",
				name, s.identity.SessionID, err)
		}
	}
}

// Close stops event forwarding without touching room memberships. Use
// LeaveAllRooms first on graceful teardown.
func (s *ChatSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *ChatSession) joinRoom(name string) error {
	s.mu.Lock()
	previous := s.rooms[name]
	s.mu.Unlock()

	// Re-join: retire the prior subscription before the replacement
	// subscribes, so no event is live on both and surfaces twice.
	// Membership is unchanged; the room sees no leave.
	if previous != nil {
		previous.sub.cancel()
	}

	sub, handle, err := s.manager.JoinRoom(name, s.identity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rooms[name] = &roomSubscription{sub: sub, handle: handle}
	s.mu.Unlock()

	go s.forward(sub)
	return nil
}

func (s *ChatSession) leaveRoom(name string) error {
	s.mu.Lock()
	room := s.rooms[name]
	delete(s.rooms, name)
	s.mu.Unlock()

	// Leaving a room the session never joined is a no-op.
	if room == nil {
		return nil
	}
	room.sub.cancel()
	return s.manager.LeaveRoom(name, room.handle)
}

func (s *ChatSession) sendMessage(name, content string) error {
	if !s.isMember(name) {
		return fmt.Errorf("send message to room %q: %w", name, ErrNotAMember)
	}
	return s.manager.SendMessage(name, s.identity.UserID, content)
}

// historyReply builds a history replay addressed to this session only.
// Other room members never observe the request.
func (s *ChatSession) historyReply(name string) (comms.Event, error) {
	if !s.isMember(name) {
		return nil, fmt.Errorf("history for room %q: %w", name, ErrNotAMember)
	}
	messages, err := s.manager.History(name)
	if err != nil {
		return nil, err
	}
	return comms.ChatHistoryEvent{Room: name, Messages: messages}, nil
}

func (s *ChatSession) isMember(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[name]
	return ok
}

// forward copies one subscription's events into the session fan-in
// until the subscription is cancelled or the session closes. Each
// joined room runs its own forwarder; the unbuffered fan-in channel
// races them fairly.
func (s *ChatSession) forward(sub *subscription) {
	for ev := range sub.Events() {
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}
