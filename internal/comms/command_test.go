package comms

import (
	"reflect"
	"testing"
)

func assertCommandSerialization(t *testing.T, cmd Command, want string) {
	t.Helper()

	data, err := MarshalCommand(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	if string(data) != want {
		t.Fatalf("encoded command = %s, want %s", data, want)
	}

	decoded, err := UnmarshalCommand(data)
	if err != nil {
		t.Fatalf("unmarshal command: %v", err)
	}
	if !reflect.DeepEqual(decoded, cmd) {
		t.Fatalf("round-trip mismatch: got %#v, want %#v", decoded, cmd)
	}
}

func TestJoinRoomCommandSerialization(t *testing.T) {
	assertCommandSerialization(t,
		JoinRoomCommand{Room: "general"},
		`{"_ct":"join_room","r":"general"}`,
	)
}

func TestLeaveRoomCommandSerialization(t *testing.T) {
	assertCommandSerialization(t,
		LeaveRoomCommand{Room: "general"},
		`{"_ct":"leave_room","r":"general"}`,
	)
}

func TestSendMessageCommandSerialization(t *testing.T) {
	assertCommandSerialization(t,
		SendMessageCommand{Room: "general", Content: "hi"},
		`{"_ct":"send_message","r":"general","c":"hi"}`,
	)
}

func TestGetHistoryCommandSerialization(t *testing.T) {
	assertCommandSerialization(t,
		GetHistoryCommand{Room: "general"},
		`{"_ct":"get_history","r":"general"}`,
	)
}

func TestQuitCommandSerialization(t *testing.T) {
	assertCommandSerialization(t, QuitCommand{}, `{"_ct":"quit"}`)
}

func TestUnmarshalCommandRejectsUnknownTag(t *testing.T) {
	if _, err := UnmarshalCommand([]byte(`{"_ct":"dance"}`)); err == nil {
		t.Fatal("expected error for unknown command tag")
	}
}
