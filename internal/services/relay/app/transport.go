package server

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"

	nanoid "github.com/jaevor/go-nanoid"
	"golang.org/x/net/websocket"

	"github.com/louisbranch/chatrelay/internal/comms"
)

const (
	sessionIDLength = 21
	// userIDLength keeps the server-assigned pseudo-identity short and
	// readable; there is no login system.
	userIDLength = 5
)

// identityMinter mints the opaque session and user tokens handed out on
// connect. The generators are shared across connections and guarded by
// a mutex.
type identityMinter struct {
	mu        sync.Mutex
	sessionID func() string
	userID    func() string
}

var (
	minterOnce sync.Once
	minter     *identityMinter
	minterErr  error
)

func newSessionIdentity() (sessionID, userID string, err error) {
	minterOnce.Do(func() {
		var newSessionID, newUserID func() string
		newSessionID, minterErr = nanoid.Standard(sessionIDLength)
		if minterErr != nil {
			return
		}
		newUserID, minterErr = nanoid.Standard(userIDLength)
		if minterErr != nil {
			return
		}
		minter = &identityMinter{sessionID: newSessionID, userID: newUserID}
	})
	if minterErr != nil {
		return "", "", fmt.Errorf("init identity generators: %w", minterErr)
	}

	minter.mu.Lock()
	defer minter.mu.Unlock()
	return minter.sessionID(), minter.userID(), nil
}

// eventWriter serializes outbound events onto one connection, one
// awaited write per event.
type eventWriter struct {
	mu   sync.Mutex
	conn io.Writer
}

func newEventWriter(conn io.Writer) *eventWriter {
	return &eventWriter{conn: conn}
}

func (w *eventWriter) Write(ev comms.Event) error {
	data, err := comms.MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.conn.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// inboundCommand is one element of the inbound stream: a decoded
// command or the decode error for a single malformed command.
type inboundCommand struct {
	cmd comms.Command
	err error
}

// readCommands decodes newline-delimited inbound commands on a
// dedicated goroutine so the session driver can select across commands,
// room events, and the shutdown signal. A malformed line is emitted as
// a decode-error element rather than ending the stream; the returned
// channel closes only when the connection's inbound side ends.
func readCommands(conn io.Reader, done <-chan struct{}) <-chan inboundCommand {
	out := make(chan inboundCommand)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			cmd, err := comms.UnmarshalCommand(line)
			select {
			case out <- inboundCommand{cmd: cmd, err: err}:
			case <-done:
				return
			}
		}
	}()
	return out
}

// handleWSConn runs one connection's session: greet with the login
// event, then drive the session loop until the client quits, the stream
// closes, the outbound sink fails, or the process shuts down.
func handleWSConn(conn *websocket.Conn, manager *RoomManager, quit <-chan struct{}) {
	defer func() {
		_ = conn.Close()
	}()

	sessionID, userID, err := newSessionIdentity()
	if err != nil {
		log.Printf("relay: mint session identity: %v", err)
		return
	}

	writer := newEventWriter(conn)
	catalog := manager.Metadata()
	rooms := make([]comms.RoomDetail, 0, len(catalog))
	for _, metadata := range catalog {
		rooms = append(rooms, comms.RoomDetail{
			Name:        metadata.Name,
			Description: metadata.Description,
		})
	}
	err = writer.Write(comms.LoginSuccessfulEvent{
		SessionID: sessionID,
		UserID:    userID,
		Rooms:     rooms,
	})
	if err != nil {
		log.Printf("relay: write login event session=%q: %v", sessionID, err)
		return
	}

	session := NewChatSession(sessionID, userID, manager)
	defer session.Close()

	done := make(chan struct{})
	defer close(done)
	commands := readCommands(conn, done)

	log.Printf("relay: session started session=%q user=%q", sessionID, userID)
	driveSession(session, commands, writer, quit)
	log.Printf("relay: session ended session=%q user=%q", sessionID, userID)
}

// driveSession is material shared by every transport: a single blocking
// selection across the inbound command stream, the session's fan-in
// room events, and the process-wide shutdown signal.
func driveSession(session *ChatSession, commands <-chan inboundCommand, writer *eventWriter, quit <-chan struct{}) {
	sessionID := session.Identity().SessionID
	for {
		select {
		case in, ok := <-commands:
			if !ok {
				// Stream closed by the peer.
				session.LeaveAllRooms()
				return
			}
			if in.err != nil {
				// One malformed command is not fatal to the session.
				log.Printf("relay: decode command session=%q: %v", sessionID, in.err)
				continue
			}
			if _, isQuit := in.cmd.(comms.QuitCommand); isQuit {
				session.LeaveAllRooms()
				return
			}
			reply, err := session.HandleCommand(in.cmd)
			if err != nil {
				log.Printf("relay: handle command %T session=%q: %v", in.cmd, sessionID, err)
				continue
			}
			if reply != nil {
				if err := writer.Write(reply); err != nil {
					log.Printf("relay: write reply session=%q: %v", sessionID, err)
					session.LeaveAllRooms()
					return
				}
			}

		case ev := <-session.Events():
			if err := writer.Write(ev); err != nil {
				// The session's own sink is gone; tear down.
				log.Printf("relay: write event session=%q: %v", sessionID, err)
				session.LeaveAllRooms()
				return
			}

		case <-quit:
			// Process shutdown: close the transport without per-room
			// bookkeeping. The whole process is stopping.
			return
		}
	}
}
