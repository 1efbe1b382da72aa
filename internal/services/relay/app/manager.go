package server

import (
	"errors"
	"fmt"

	"github.com/louisbranch/chatrelay/internal/comms"
)

// ErrRoomNotFound reports an operation addressed to an unknown room.
var ErrRoomNotFound = errors.New("room not found")

// RoomManager routes join/leave/send/history operations to rooms by
// name. The room set is fixed at startup; no room is created or
// destroyed at runtime.
type RoomManager struct {
	rooms map[string]*ChatRoom
	// order preserves the configured catalog order for the login
	// greeting.
	order []RoomMetadata
}

// NewRoomManager creates the fixed room set from the given catalog.
func NewRoomManager(catalog []RoomMetadata) *RoomManager {
	manager := &RoomManager{
		rooms: make(map[string]*ChatRoom, len(catalog)),
		order: make([]RoomMetadata, 0, len(catalog)),
	}
	for _, metadata := range catalog {
		if _, ok := manager.rooms[metadata.Name]; ok {
			continue
		}
		manager.rooms[metadata.Name] = NewChatRoom(metadata)
		manager.order = append(manager.order, metadata)
	}
	return manager
}

// Metadata returns the room catalog in configuration order.
func (m *RoomManager) Metadata() []RoomMetadata {
	catalog := make([]RoomMetadata, len(m.order))
	copy(catalog, m.order)
	return catalog
}

// Room looks up a room by name.
func (m *RoomManager) Room(name string) (*ChatRoom, bool) {
	room, ok := m.rooms[name]
	return room, ok
}

// JoinRoom subscribes the identity to the named room.
func (m *RoomManager) JoinRoom(name string, identity SessionAndUserID) (*subscription, UserSessionHandle, error) {
	room, ok := m.rooms[name]
	if !ok {
		return nil, UserSessionHandle{}, fmt.Errorf("join room %q: %w", name, ErrRoomNotFound)
	}
	sub, handle := room.Join(identity)
	return sub, handle, nil
}

// LeaveRoom releases the membership the handle stands for.
func (m *RoomManager) LeaveRoom(name string, handle UserSessionHandle) error {
	room, ok := m.rooms[name]
	if !ok {
		return fmt.Errorf("leave room %q: %w", name, ErrRoomNotFound)
	}
	room.Leave(handle)
	return nil
}

// SendMessage records and broadcasts a message in the named room.
func (m *RoomManager) SendMessage(name, userID, content string) error {
	room, ok := m.rooms[name]
	if !ok {
		return fmt.Errorf("send message to room %q: %w", name, ErrRoomNotFound)
	}
	return room.HandleMessage(userID, content)
}

// History returns the named room's recent messages, oldest first.
func (m *RoomManager) History(name string) ([]comms.HistoryMessage, error) {
	room, ok := m.rooms[name]
	if !ok {
		return nil, fmt.Errorf("history for room %q: %w", name, ErrRoomNotFound)
	}
	return room.History(), nil
}
