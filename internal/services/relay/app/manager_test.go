package server

import (
	"errors"
	"reflect"
	"testing"
)

func testCatalog() []RoomMetadata {
	return []RoomMetadata{
		{Name: "general", Description: "General discussion"},
		{Name: "random", Description: "Off-topic chatter"},
	}
}

func TestNewRoomManagerSkipsDuplicateNames(t *testing.T) {
	manager := NewRoomManager([]RoomMetadata{
		{Name: "general", Description: "first"},
		{Name: "general", Description: "second"},
	})

	catalog := manager.Metadata()
	if len(catalog) != 1 {
		t.Fatalf("catalog length = %d, want 1", len(catalog))
	}
	if catalog[0].Description != "first" {
		t.Fatalf("catalog description = %q, want the first entry kept", catalog[0].Description)
	}
}

func TestMetadataPreservesCatalogOrder(t *testing.T) {
	manager := NewRoomManager(testCatalog())
	got := manager.Metadata()
	if !reflect.DeepEqual(got, testCatalog()) {
		t.Fatalf("catalog = %#v, want configuration order", got)
	}
}

func TestJoinRoomUnknownRoom(t *testing.T) {
	manager := NewRoomManager(testCatalog())
	_, _, err := manager.JoinRoom("nowhere", SessionAndUserID{SessionID: "s1", UserID: "u1"})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join error = %v, want ErrRoomNotFound", err)
	}
}

func TestLeaveRoomUnknownRoom(t *testing.T) {
	manager := NewRoomManager(testCatalog())
	err := manager.LeaveRoom("nowhere", UserSessionHandle{})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("leave error = %v, want ErrRoomNotFound", err)
	}
}

func TestSendMessageUnknownRoom(t *testing.T) {
	manager := NewRoomManager(testCatalog())
	err := manager.SendMessage("nowhere", "u1", "hello")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("send error = %v, want ErrRoomNotFound", err)
	}
}

func TestHistoryUnknownRoom(t *testing.T) {
	manager := NewRoomManager(testCatalog())
	if _, err := manager.History("nowhere"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("history error = %v, want ErrRoomNotFound", err)
	}
}

func TestManagerRoutesToAddressedRoom(t *testing.T) {
	manager := NewRoomManager(testCatalog())
	identity := SessionAndUserID{SessionID: "s1", UserID: "u1"}

	sub, handle, err := manager.JoinRoom("general", identity)
	if err != nil {
		t.Fatalf("join room: %v", err)
	}
	<-sub.Events()

	if err := manager.SendMessage("general", "u1", "routed"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	history, err := manager.History("general")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "routed" {
		t.Fatalf("history = %#v, want the routed message", history)
	}

	// The sibling room is untouched.
	if other, err := manager.History("random"); err != nil || len(other) != 0 {
		t.Fatalf("sibling history = %#v err = %v, want empty", other, err)
	}

	if err := manager.LeaveRoom("general", handle); err != nil {
		t.Fatalf("leave room: %v", err)
	}
}
