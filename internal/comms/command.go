package comms

import (
	"encoding/json"
	"fmt"
)

// Command discriminator values carried in the `_ct` field.
const (
	commandTagJoinRoom    = "join_room"
	commandTagLeaveRoom   = "leave_room"
	commandTagSendMessage = "send_message"
	commandTagGetHistory  = "get_history"
	commandTagQuit        = "quit"
)

// JoinRoomCommand asks to join the named room.
type JoinRoomCommand struct {
	Room string `json:"r"`
}

// LeaveRoomCommand asks to leave the named room.
type LeaveRoomCommand struct {
	Room string `json:"r"`
}

// SendMessageCommand sends a text message to the named room.
type SendMessageCommand struct {
	Room    string `json:"r"`
	Content string `json:"c"`
}

// GetHistoryCommand requests the named room's recent-history replay.
type GetHistoryCommand struct {
	Room string `json:"r"`
}

// QuitCommand ends the session gracefully.
type QuitCommand struct{}

// Command is one of the typed messages a client sends to the server.
type Command interface {
	commandTag() string
}

func (JoinRoomCommand) commandTag() string    { return commandTagJoinRoom }
func (LeaveRoomCommand) commandTag() string   { return commandTagLeaveRoom }
func (SendMessageCommand) commandTag() string { return commandTagSendMessage }
func (GetHistoryCommand) commandTag() string  { return commandTagGetHistory }
func (QuitCommand) commandTag() string        { return commandTagQuit }

// MarshalCommand encodes a command as a flat JSON object with the `_ct`
// discriminator first.
func MarshalCommand(cmd Command) ([]byte, error) {
	switch cmd := cmd.(type) {
	case JoinRoomCommand:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
			JoinRoomCommand
		}{cmd.commandTag(), cmd})
	case LeaveRoomCommand:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
			LeaveRoomCommand
		}{cmd.commandTag(), cmd})
	case SendMessageCommand:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
			SendMessageCommand
		}{cmd.commandTag(), cmd})
	case GetHistoryCommand:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
			GetHistoryCommand
		}{cmd.commandTag(), cmd})
	case QuitCommand:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
		}{cmd.commandTag()})
	default:
		return nil, fmt.Errorf("unsupported command type %T", cmd)
	}
}

// UnmarshalCommand decodes a flat JSON object into its typed command.
func UnmarshalCommand(data []byte) (Command, error) {
	var probe struct {
		Tag string `json:"_ct"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode command envelope: %w", err)
	}

	switch probe.Tag {
	case commandTagJoinRoom:
		var cmd JoinRoomCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, fmt.Errorf("decode %s command: %w", probe.Tag, err)
		}
		return cmd, nil
	case commandTagLeaveRoom:
		var cmd LeaveRoomCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, fmt.Errorf("decode %s command: %w", probe.Tag, err)
		}
		return cmd, nil
	case commandTagSendMessage:
		var cmd SendMessageCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, fmt.Errorf("decode %s command: %w", probe.Tag, err)
		}
		return cmd, nil
	case commandTagGetHistory:
		var cmd GetHistoryCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, fmt.Errorf("decode %s command: %w", probe.Tag, err)
		}
		return cmd, nil
	case commandTagQuit:
		return QuitCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown command tag %q", probe.Tag)
	}
}
